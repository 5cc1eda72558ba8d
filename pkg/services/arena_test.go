package services

import (
	"context"
	"sync"
	"testing"

	"arena-breakout-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetArenaEmpty(t *testing.T) {
	svc := NewArenaService(openStore(t))

	arena, err := svc.GetArena(context.Background())
	require.NoError(t, err)
	assert.Nil(t, arena)
}

func TestCreateArenaReplacesActive(t *testing.T) {
	f := newFixture(t)
	svc := NewArenaService(f.db)
	ctx := context.Background()

	first, err := svc.CreateArena(ctx, f.admin, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultArenaName, first.Name)
	assert.True(t, first.IsActive)

	second, err := svc.CreateArena(ctx, f.admin, "spring-arena")
	require.NoError(t, err)

	active, err := svc.GetArena(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "spring-arena", active.Name)

	old, err := svc.GetRoom(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestCreateArenaConcurrent(t *testing.T) {
	f := newFixture(t)
	svc := NewArenaService(f.db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateArena(ctx, f.admin, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := svc.GetArena(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.IsActive)
}

func TestCreateArenaRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	svc := NewArenaService(f.db)
	ctx := context.Background()

	for _, u := range []*models.User{f.team, f.client} {
		_, err := svc.CreateArena(ctx, u, "")
		requireCode(t, err, CodeUnauthorized)
	}
	_, err := svc.CreateArena(ctx, nil, "")
	requireCode(t, err, CodeUnauthenticated)

	arena, err := svc.GetArena(ctx)
	require.NoError(t, err)
	assert.Nil(t, arena)
}

func TestArenaRoomLookup(t *testing.T) {
	f := newFixture(t)
	svc := NewArenaService(f.db)
	ctx := context.Background()

	_, err := svc.GetRoom(ctx, "missing")
	requireCode(t, err, CodeNotFound)

	room, err := svc.CreateArena(ctx, f.admin, "")
	require.NoError(t, err)
	require.NoError(t, svc.Touch(ctx, room.ID))

	err = svc.Touch(ctx, "missing")
	requireCode(t, err, CodeNotFound)
}
