package service

import (
	"context"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/repository"
)

type snapshotService struct {
	tx repository.Transactor
}

func NewSnapshotService(tx repository.Transactor) SnapshotService {
	return &snapshotService{tx: tx}
}

// Snapshot reads every game and the active rentals for a new subscriber.
func (s *snapshotService) Snapshot(ctx context.Context) (*broadcast.Snapshot, error) {
	snap := &broadcast.Snapshot{Games: []domain.Game{}, Rentals: []domain.Rental{}}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		games, err := repos.Games.List(ctx)
		if err != nil {
			return err
		}
		rentals, err := repos.Rentals.List(ctx, domain.RentalFilter{ActiveOnly: true})
		if err != nil {
			return err
		}
		snap.Games = append(snap.Games, games...)
		snap.Rentals = append(snap.Rentals, rentals...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
