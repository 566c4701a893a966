package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
)

const orderColumns = `id, user_id, game_id, status, rental_id, created_at, updated_at`

type orderRepository struct {
	db querier
}

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.GameID, &o.Status, &o.RentalID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (user_id, game_id, status, rental_id, created_at, updated_at)
	          VALUES ($1, $2, $3, NULL, $4, $5) RETURNING id`
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Status = domain.OrderStatusWaiting
	return r.db.QueryRowContext(ctx, query, o.UserID, o.GameID, o.Status, o.CreatedAt, o.UpdatedAt).Scan(&o.ID)
}

func (r *orderRepository) GetByID(ctx context.Context, id int32) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	return o, err
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	return r.query(ctx, query, args...)
}

func (r *orderRepository) CountWaitingByGame(ctx context.Context, gameID int32) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM orders WHERE game_id = $1 AND status = $2`, gameID, domain.OrderStatusWaiting).Scan(&count)
	return count, err
}

func (r *orderRepository) ListStaleWaiting(ctx context.Context, createdBefore time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at`
	return r.query(ctx, query, domain.OrderStatusWaiting, createdBefore)
}

func (r *orderRepository) Transition(ctx context.Context, id int32, status domain.OrderStatus, rentalID *int32) (*domain.Order, error) {
	query := `UPDATE orders SET status = $2, rental_id = COALESCE($3, rental_id), updated_at = $4
	          WHERE id = $1 AND status = $5 RETURNING ` + orderColumns
	logger.DatabaseCall("orders.transition", query, "order_id", id, "status", status)

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id, status, rentalID, time.Now().UTC(), domain.OrderStatusWaiting))
	if err == nil {
		logger.DatabaseResult("orders.transition", 1, nil, "order_id", id)
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("orders.transition", 0, err, "order_id", id)
		return nil, fmt.Errorf("transition order: %w", err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, current.CheckStatus()
}

func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
