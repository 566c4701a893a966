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

const rentalColumns = `id, borrower_index, game_id, rented_by, order_id, rented_at, returned_at`

type rentalRepository struct {
	db querier
}

func scanRental(row interface{ Scan(...any) error }) (*domain.Rental, error) {
	rt := &domain.Rental{}
	err := row.Scan(&rt.ID, &rt.Index, &rt.GameID, &rt.RentedBy, &rt.OrderID, &rt.RentedAt, &rt.ReturnedAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (borrower_index, game_id, rented_by, order_id, rented_at, returned_at)
	          VALUES ($1, $2, $3, $4, $5, NULL) RETURNING id`
	if rt.RentedAt.IsZero() {
		rt.RentedAt = time.Now().UTC()
	}
	rt.ReturnedAt = nil
	return r.db.QueryRowContext(ctx, query, rt.Index, rt.GameID, rt.RentedBy, rt.OrderID, rt.RentedAt).Scan(&rt.ID)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRentalNotFound
	}
	return rt, err
}

func (r *rentalRepository) List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE 1=1`
	var args []any
	if filter.GameID != 0 {
		args = append(args, filter.GameID)
		query += fmt.Sprintf(" AND game_id = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND returned_at IS NULL"
	}
	query += " ORDER BY rented_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func (r *rentalRepository) CountActiveByGame(ctx context.Context, gameID int32) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals WHERE game_id = $1 AND returned_at IS NULL`, gameID).Scan(&count)
	return count, err
}

func (r *rentalRepository) MarkReturned(ctx context.Context, id int32, at time.Time) (*domain.Rental, error) {
	query := `UPDATE rentals SET returned_at = $2 WHERE id = $1 AND returned_at IS NULL RETURNING ` + rentalColumns
	logger.DatabaseCall("rentals.mark_returned", query, "rental_id", id)

	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id, at))
	if err == nil {
		logger.DatabaseResult("rentals.mark_returned", 1, nil, "rental_id", id)
		return rt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("rentals.mark_returned", 0, err, "rental_id", id)
		return nil, fmt.Errorf("mark returned: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrAlreadyReturned
}

func (r *rentalRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rentals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRentalNotFound
	}
	return nil
}
