package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

const bookingColumns = `
	id, guest_id, hotel_id, trip_id, trip_instance_id, from_leg, to_leg, seats, bags,
	source, status, payment_status, payment_method, seat_state, metadata, hold_expires_at,
	created_by, confirmed_by, confirmed_at, rejected_by, rejected_at, rejection_reason,
	cancelled_by, cancelled_at, cancellation_reason, paid_at, refunded_at, waived_by,
	waived_at, waiver_reason, created_at, updated_at`

// Placement, size and authorship of a booking never change after creation
const upsertBooking = `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	ON CONFLICT (id) DO UPDATE SET
		status              = EXCLUDED.status,
		payment_status      = EXCLUDED.payment_status,
		payment_method      = EXCLUDED.payment_method,
		seat_state          = EXCLUDED.seat_state,
		metadata            = EXCLUDED.metadata,
		hold_expires_at     = EXCLUDED.hold_expires_at,
		confirmed_by        = EXCLUDED.confirmed_by,
		confirmed_at        = EXCLUDED.confirmed_at,
		rejected_by         = EXCLUDED.rejected_by,
		rejected_at         = EXCLUDED.rejected_at,
		rejection_reason    = EXCLUDED.rejection_reason,
		cancelled_by        = EXCLUDED.cancelled_by,
		cancelled_at        = EXCLUDED.cancelled_at,
		cancellation_reason = EXCLUDED.cancellation_reason,
		paid_at             = EXCLUDED.paid_at,
		refunded_at         = EXCLUDED.refunded_at,
		waived_by           = EXCLUDED.waived_by,
		waived_at           = EXCLUDED.waived_at,
		waiver_reason       = EXCLUDED.waiver_reason,
		updated_at          = EXCLUDED.updated_at`

// --- Booking Operations ---

// GetBooking returns a booking by ID
func (l *Ledger) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return getBooking(ctx, l.pool, id)
}

// ListBookings returns bookings matching the filter, oldest first
func (l *Ledger) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	query, args := bookingQuery(filter)
	return listBookings(ctx, l.pool, query, args...)
}

func getBooking(ctx context.Context, q querier, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundError{Resource: "booking", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func listBookings(ctx context.Context, q querier, query string, args ...any) ([]*models.Booking, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.GuestID, &b.HotelID, &b.TripID, &b.TripInstanceID, &b.FromLeg, &b.ToLeg,
		&b.Seats, &b.Bags, &b.Source, &b.Status, &b.PaymentStatus, &b.PaymentMethod,
		&b.SeatState, &b.Metadata, &b.HoldExpiresAt, &b.CreatedBy, &b.ConfirmedBy,
		&b.ConfirmedAt, &b.RejectedBy, &b.RejectedAt, &b.RejectionReason, &b.CancelledBy,
		&b.CancelledAt, &b.CancellationReason, &b.PaidAt, &b.RefundedAt, &b.WaivedBy,
		&b.WaivedAt, &b.WaiverReason, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func bookingArgs(b *models.Booking) []any {
	return []any{
		b.ID, b.GuestID, b.HotelID, b.TripID, b.TripInstanceID, b.FromLeg, b.ToLeg,
		b.Seats, b.Bags, b.Source, b.Status, b.PaymentStatus, b.PaymentMethod,
		b.SeatState, b.Metadata, b.HoldExpiresAt, b.CreatedBy, b.ConfirmedBy,
		b.ConfirmedAt, b.RejectedBy, b.RejectedAt, b.RejectionReason, b.CancelledBy,
		b.CancelledAt, b.CancellationReason, b.PaidAt, b.RefundedAt, b.WaivedBy,
		b.WaivedAt, b.WaiverReason, b.CreatedAt, b.UpdatedAt,
	}
}

// bookingQuery builds the filtered booking listing
func bookingQuery(filter models.BookingFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.TripInstanceID != nil {
		add("trip_instance_id = $%d", *filter.TripInstanceID)
	}
	if filter.HotelID != nil {
		add("hotel_id = $%d", *filter.HotelID)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.HeldBefore != nil {
		add("seat_state = 'HELD' AND hold_expires_at <= $%d", *filter.HeldBefore)
	}
	if filter.Date != "" {
		add("trip_instance_id IN (SELECT id FROM trip_instances WHERE scheduled_date = $%d)", filter.Date)
	}

	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY created_at, id", args
}
