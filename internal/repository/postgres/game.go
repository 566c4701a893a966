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

const gameColumns = `id, title, description, category, image_url, amount, quantity, created_on, updated_on`

type gameRepository struct {
	db querier
}

func scanGame(row interface{ Scan(...any) error }) (*domain.Game, error) {
	g := &domain.Game{}
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Category, &g.ImageURL, &g.Amount, &g.Quantity, &g.CreatedOn, &g.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *gameRepository) Create(ctx context.Context, g *domain.Game) error {
	query := `INSERT INTO games (title, description, category, image_url, amount, quantity, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now().UTC()
	g.CreatedOn = now
	g.UpdatedOn = now
	err := r.db.QueryRowContext(ctx, query, g.Title, g.Description, g.Category, g.ImageURL, g.Amount, g.Quantity, g.CreatedOn, g.UpdatedOn).Scan(&g.ID)
	if pqCode(err) == pqUniqueViolation {
		return domain.ErrDuplicateTitle
	}
	return err
}

func (r *gameRepository) GetByID(ctx context.Context, id int32) (*domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	g, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	return g, err
}

func (r *gameRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	g, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	return g, err
}

func (r *gameRepository) List(ctx context.Context) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY title`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func (r *gameRepository) Update(ctx context.Context, g *domain.Game) error {
	query := `UPDATE games SET title=$1, description=$2, category=$3, image_url=$4, amount=$5, quantity=$6, updated_on=$7 WHERE id=$8`
	g.UpdatedOn = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, g.Title, g.Description, g.Category, g.ImageURL, g.Amount, g.Quantity, g.UpdatedOn, g.ID)
	if pqCode(err) == pqUniqueViolation {
		return domain.ErrDuplicateTitle
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (r *gameRepository) Delete(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if pqCode(err) == pqForeignKeyViolation {
		return domain.ErrGameInUse
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (r *gameRepository) AdjustQuantity(ctx context.Context, id int32, delta int32) (*domain.Game, error) {
	query := `UPDATE games SET quantity = quantity + $2, updated_on = $3
	          WHERE id = $1 AND quantity + $2 >= 0 AND quantity + $2 <= amount
	          RETURNING ` + gameColumns
	logger.DatabaseCall("games.adjust_quantity", query, "game_id", id, "delta", delta)

	g, err := scanGame(r.db.QueryRowContext(ctx, query, id, delta, time.Now().UTC()))
	if err == nil {
		logger.DatabaseResult("games.adjust_quantity", 1, nil, "game_id", id, "quantity", g.Quantity)
		return g, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("games.adjust_quantity", 0, err, "game_id", id)
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}

	// Zero rows: either the game is gone or the bound check failed.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	logger.DatabaseResult("games.adjust_quantity", 0, nil, "game_id", id, "rejected", "out of bounds")
	return nil, domain.ErrInvalidQuantity
}
