package profile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Upsert(ctx, &Profile{
		UserID:              "u1",
		DietaryRestrictions: []string{"Vegano"},
		Allergies:           []string{"Nozes", "Soja"},
	}))
	p, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Vegano"}, p.DietaryRestrictions)
	assert.Equal(t, []string{"Nozes", "Soja"}, p.Allergies)

	require.NoError(t, s.Upsert(ctx, &Profile{UserID: "u1", Allergies: []string{"Ovos"}}))
	p, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.DietaryRestrictions)
	assert.Equal(t, []string{"Ovos"}, p.Allergies)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, &Profile{UserID: "u1", Allergies: []string{"Ovos"}}))

	p, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	p.Allergies[0] = "changed"

	again, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ovos", again.Allergies[0])
}

func TestSQLStore(t *testing.T) {
	s, err := NewSQLStore(filepath.Join(t.TempDir(), "db", "profiles.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	exerciseStore(t, s)
}

func TestSQLStoreMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")

	first, err := NewSQLStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Upsert(context.Background(), &Profile{UserID: "u1", Allergies: []string{"Peixe"}}))
	require.NoError(t, first.Close())

	second, err := NewSQLStore(path)
	require.NoError(t, err)
	defer second.Close()

	p, err := second.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Peixe"}, p.Allergies)
}
