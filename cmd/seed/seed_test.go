package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/repository/memory"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

const seedYAML = `
admin:
  email: admin@example.com
  password: admin-password
users:
  - email: staff@example.com
    password: staff-password
    name: Front Desk
    role: RENTAL_STAFF
  - email: ann@example.com
    password: ann-password
    name: Ann
    borrower_index: "123456"
    role: USER
games:
  - title: Catan
    category: strategy
    amount: 3
  - title: Dixit
    amount: 1
`

func TestReadSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	data, err := readSetupFile(path)
	require.NoError(t, err)
	assert.Equal(t, "config/config.dev.yaml", data.ConfigFile)
	assert.Len(t, data.Users, 2)
	assert.Equal(t, int32(3), data.Games[0].Amount)
}

func TestPopulate_IsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	data, err := readSetupFile(path)
	require.NoError(t, err)

	store := memory.NewStore()
	s := &seeder{
		auth:      service.NewAuthService(store.Repositories, security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)),
		inventory: service.NewInventoryService(store, store.Repositories, broadcast.Discard),
	}

	ctx := context.Background()
	require.NoError(t, s.populate(ctx, data))
	require.NoError(t, s.populate(ctx, data))

	games, err := store.Games.List(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	for _, g := range games {
		assert.Equal(t, g.Amount, g.Quantity)
	}

	ann, err := store.Users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, ann.Role)
	assert.Equal(t, "123456", ann.BorrowerIndex)
}
