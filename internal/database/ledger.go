package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/allocator"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/apperrors"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

var _ allocator.Ledger = (*Ledger)(nil)

const instanceColumns = `
	id, trip_id, hotel_id, shuttle_id, ordinal, scheduled_date, start_time, end_time,
	status, booking_ids, version, actual_start_time, actual_end_time, cancelled_by,
	cancel_reason, created_at, updated_at`

const instanceOrder = `
	ORDER BY scheduled_date, start_time, (shuttle_id IS NULL), ordinal, created_at`

// Ledger keeps trip instances, route instances and bookings in Postgres.
// Every instance row carries a version; Mutate only commits when the version
// it read is still current.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new ledger
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// --- Trip Instance Operations ---

// CreateInstance inserts the instance and its legs with version 1
func (l *Ledger) CreateInstance(ctx context.Context, inst *models.TripInstance) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO trip_instances (`+instanceColumns+`, slot_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12, $13, $14, $15, $16, $17)
	`,
		inst.ID, inst.TripID, inst.HotelID, inst.ShuttleID, inst.Ordinal,
		inst.ScheduledDate, inst.StartTime, inst.EndTime, inst.Status, idArray(inst.BookingIDs),
		inst.ActualStartTime, inst.ActualEndTime, inst.CancelledBy, inst.CancelReason,
		inst.CreatedAt, inst.UpdatedAt, inst.SlotKey(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ConcurrencyConflictError{Resource: "trip instance slot " + inst.SlotKey(), Err: err}
		}
		return fmt.Errorf("failed to insert trip instance: %w", err)
	}

	batch := &pgx.Batch{}
	for _, leg := range inst.Legs {
		batch.Queue(`
			INSERT INTO route_instances (id, trip_instance_id, route_id, order_index, seats_occupied, seat_held, completed, eta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, leg.ID, inst.ID, leg.RouteID, leg.OrderIndex, leg.SeatsOccupied, leg.SeatHeld, leg.Completed, leg.ETA)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert route instances: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit trip instance: %w", err)
	}
	inst.Version = 1
	return nil
}

// GetInstance returns a trip instance with its legs
func (l *Ledger) GetInstance(ctx context.Context, id uuid.UUID) (*models.TripInstance, error) {
	return getInstance(ctx, l.pool, id)
}

// ListWindow returns the non-cancelled instances of a hotel in one slot
func (l *Ledger) ListWindow(ctx context.Context, hotelID uuid.UUID, slot models.Slot) ([]*models.TripInstance, error) {
	return listInstances(ctx, l.pool, `
		SELECT `+instanceColumns+`
		FROM trip_instances
		WHERE hotel_id = $1 AND scheduled_date = $2 AND start_time = $3 AND end_time = $4
		  AND status <> 'CANCELLED'
	`+instanceOrder, hotelID, slot.Date, slot.Start, slot.End)
}

// ListInstances returns the instances matching the filter
func (l *Ledger) ListInstances(ctx context.Context, filter models.InstanceFilter) ([]*models.TripInstance, error) {
	query, args := instanceQuery(filter)
	return listInstances(ctx, l.pool, query, args...)
}

// CountActiveInstances counts SCHEDULED and IN_PROGRESS instances of a trip
func (l *Ledger) CountActiveInstances(ctx context.Context, tripID uuid.UUID) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM trip_instances
		WHERE trip_id = $1 AND status IN ('SCHEDULED', 'IN_PROGRESS')
	`, tripID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trip instances: %w", err)
	}
	return count, nil
}

// Mutate runs fn inside a transaction and commits the instance, its legs and
// the saved bookings only if nobody else bumped the version meanwhile.
func (l *Ledger) Mutate(ctx context.Context, instanceID uuid.UUID, fn func(tx allocator.InstanceTx) error) (*models.TripInstance, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := getInstance(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}

	itx := &instanceTx{
		ctx:    ctx,
		q:      tx,
		inst:   current.Clone(),
		loaded: make(map[uuid.UUID]*models.Booking),
		staged: make(map[uuid.UUID]*models.Booking),
	}
	if err := fn(itx); err != nil {
		return nil, err
	}

	next := itx.inst
	tag, err := tx.Exec(ctx, `
		UPDATE trip_instances
		SET shuttle_id = $3, ordinal = $4, slot_key = $5, status = $6, booking_ids = $7,
		    actual_start_time = $8, actual_end_time = $9, cancelled_by = $10,
		    cancel_reason = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2
	`,
		instanceID, current.Version, next.ShuttleID, next.Ordinal, next.SlotKey(), next.Status,
		idArray(next.BookingIDs), next.ActualStartTime, next.ActualEndTime, next.CancelledBy,
		next.CancelReason, next.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ConcurrencyConflictError{Resource: "trip instance slot " + next.SlotKey(), Err: err}
		}
		return nil, fmt.Errorf("failed to update trip instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ConcurrencyConflictError{Resource: "trip instance " + instanceID.String()}
	}

	batch := &pgx.Batch{}
	for _, leg := range next.Legs {
		batch.Queue(`
			UPDATE route_instances
			SET seats_occupied = $2, seat_held = $3, completed = $4, eta = $5
			WHERE id = $1
		`, leg.ID, leg.SeatsOccupied, leg.SeatHeld, leg.Completed, leg.ETA)
	}
	for _, b := range itx.staged {
		batch.Queue(upsertBooking, bookingArgs(b)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to write trip instance changes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit trip instance: %w", err)
	}

	next.Version = current.Version + 1
	return next.Clone(), nil
}

type instanceTx struct {
	ctx    context.Context
	q      querier
	inst   *models.TripInstance
	loaded map[uuid.UUID]*models.Booking
	staged map[uuid.UUID]*models.Booking
}

func (t *instanceTx) Instance() *models.TripInstance {
	return t.inst
}

func (t *instanceTx) Booking(id uuid.UUID) (*models.Booking, error) {
	if b, ok := t.staged[id]; ok {
		return b, nil
	}
	if b, ok := t.loaded[id]; ok {
		return b, nil
	}
	b, err := getBooking(t.ctx, t.q, id)
	if err != nil {
		return nil, err
	}
	if b.TripInstanceID != t.inst.ID {
		return nil, apperrors.NotFoundError{Resource: "booking", ID: id.String()}
	}
	t.loaded[id] = b
	return b, nil
}

func (t *instanceTx) Bookings() ([]*models.Booking, error) {
	query, args := bookingQuery(models.BookingFilter{TripInstanceID: &t.inst.ID})
	list, err := listBookings(t.ctx, t.q, query, args...)
	if err != nil {
		return nil, err
	}
	for i, b := range list {
		if staged, ok := t.staged[b.ID]; ok {
			list[i] = staged
		} else if loaded, ok := t.loaded[b.ID]; ok {
			list[i] = loaded
		} else {
			t.loaded[b.ID] = b
		}
	}
	return list, nil
}

func (t *instanceTx) SaveBooking(b *models.Booking) error {
	if b.TripInstanceID != t.inst.ID {
		return apperrors.ValidationError{Field: "tripInstanceId", Msg: "booking belongs to another trip instance"}
	}
	t.staged[b.ID] = b
	return nil
}

func getInstance(ctx context.Context, q querier, id uuid.UUID) (*models.TripInstance, error) {
	inst, err := scanInstance(q.QueryRow(ctx, `
		SELECT `+instanceColumns+`
		FROM trip_instances
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundError{Resource: "trip instance", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get trip instance: %w", err)
	}

	if err := loadLegs(ctx, q, []*models.TripInstance{inst}); err != nil {
		return nil, err
	}
	return inst, nil
}

func listInstances(ctx context.Context, q querier, query string, args ...any) ([]*models.TripInstance, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip instances: %w", err)
	}
	defer rows.Close()

	var list []*models.TripInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip instance: %w", err)
		}
		list = append(list, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trip instances: %w", err)
	}
	rows.Close()

	if err := loadLegs(ctx, q, list); err != nil {
		return nil, err
	}
	return list, nil
}

func scanInstance(row scanner) (*models.TripInstance, error) {
	var inst models.TripInstance
	err := row.Scan(
		&inst.ID, &inst.TripID, &inst.HotelID, &inst.ShuttleID, &inst.Ordinal,
		&inst.ScheduledDate, &inst.StartTime, &inst.EndTime, &inst.Status, &inst.BookingIDs,
		&inst.Version, &inst.ActualStartTime, &inst.ActualEndTime, &inst.CancelledBy,
		&inst.CancelReason, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func loadLegs(ctx context.Context, q querier, list []*models.TripInstance) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.TripInstance, len(list))
	ids := make([]uuid.UUID, 0, len(list))
	for _, inst := range list {
		byID[inst.ID] = inst
		ids = append(ids, inst.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT id, trip_instance_id, route_id, order_index, seats_occupied, seat_held, completed, eta
		FROM route_instances
		WHERE trip_instance_id = ANY($1)
		ORDER BY trip_instance_id, order_index
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query route instances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.RouteInstance
		err := rows.Scan(
			&leg.ID, &leg.TripInstanceID, &leg.RouteID, &leg.OrderIndex,
			&leg.SeatsOccupied, &leg.SeatHeld, &leg.Completed, &leg.ETA,
		)
		if err != nil {
			return fmt.Errorf("failed to scan route instance: %w", err)
		}
		inst := byID[leg.TripInstanceID]
		inst.Legs = append(inst.Legs, leg)
	}
	return rows.Err()
}

// idArray keeps empty id lists out of the NOT NULL column as '{}'
func idArray(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

// instanceQuery builds the filtered instance listing
func instanceQuery(filter models.InstanceFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.HotelID != nil {
		add("hotel_id = $%d", *filter.HotelID)
	}
	if filter.TripID != nil {
		add("trip_id = $%d", *filter.TripID)
	}
	if filter.ShuttleID != nil {
		add("shuttle_id = $%d", *filter.ShuttleID)
	}
	if filter.Date != "" {
		add("scheduled_date = $%d", filter.Date)
	}

	query := "SELECT " + instanceColumns + " FROM trip_instances"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + instanceOrder, args
}
