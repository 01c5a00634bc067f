package objects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchMugExample(t *testing.T) {
	s := NewStore()
	s.Start("mug")
	s.Add("mug", "ceramic coffee mug with a handle")

	name, ok := s.Match("I see a white ceramic mug")
	require.True(t, ok)
	assert.Equal(t, "mug", name)
}

func TestMatchRules(t *testing.T) {
	tests := []struct {
		name   string
		object string
		sample string
		desc   string
		want   bool
	}{
		{"two shared words", "bottle", "plastic water bottle", "a clear plastic container of water", true},
		{"one word without name", "bottle", "plastic water bottle", "a plastic toy", false},
		{"one word with name", "duck", "yellow rubber duck toy", "a small yellow duck", true},
		{"short words ignored", "cup", "a red cup on top", "a red cup on a desk", false},
		{"stop words ignored", "book", "this looks like some paper", "this looks like some", false},
		{"case insensitive", "lamp", "Brass Desk Lamp", "a BRASS desk light", true},
		{"empty description", "lamp", "brass desk lamp", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Add(tt.object, tt.sample)
			_, ok := s.Match(tt.desc)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestMatchFirstObjectWins(t *testing.T) {
	s := NewStore()
	s.Add("first", "black leather wallet")
	s.Add("second", "black leather wallet with cards")

	name, ok := s.Match("a black leather wallet")
	require.True(t, ok)
	assert.Equal(t, "first", name)
}

func TestStartClearsSamplesKeepsPosition(t *testing.T) {
	s := NewStore()
	s.Add("mug", "old sample")
	s.Add("duck", "yellow duck")

	s.Start("Mug")
	assert.Equal(t, 0, s.Count("mug"))
	assert.True(t, s.Has("mug"))
	assert.Equal(t, []string{"mug", "duck"}, s.Names())
}

func TestCommitEmptyRemovesObject(t *testing.T) {
	s := NewStore()
	s.Start("ghost")

	n, err := s.Commit(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, s.Has("ghost"))
	assert.Empty(t, s.Objects())
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	s, err := Open(ctx, WithRepository(repo))
	require.NoError(t, err)

	s.Start("rubber duck")
	s.Add("rubber duck", "yellow rubber duck toy")
	s.Add("rubber duck", "small yellow bath toy")
	_, err = s.Commit(ctx, "rubber duck")
	require.NoError(t, err)

	s.Start("mug")
	s.Add("mug", "ceramic coffee mug")
	_, err = s.Commit(ctx, "mug")
	require.NoError(t, err)

	// An empty object is never written.
	s.Start("ghost")
	_, err = s.Commit(ctx, "ghost")
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "rubber duck", loaded[0].Name)
	assert.Equal(t, []string{"yellow rubber duck toy", "small yellow bath toy"}, loaded[0].Samples)
	assert.Equal(t, "mug", loaded[1].Name)

	reopened, err := Open(ctx, WithRepository(repo))
	require.NoError(t, err)
	assert.Equal(t, []string{"rubber duck", "mug"}, reopened.Names())

	name, ok := reopened.Match("a yellow rubber toy")
	require.True(t, ok)
	assert.Equal(t, "rubber duck", name)
}

func TestSQLiteRepositoryRetrainAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Save(ctx, Object{Name: "a", Samples: []string{"one"}}))
	require.NoError(t, repo.Save(ctx, Object{Name: "b", Samples: []string{"two"}}))
	require.NoError(t, repo.Save(ctx, Object{Name: "a", Samples: []string{"three", "four"}}))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].Name, "retrained object keeps its position")
	assert.Equal(t, []string{"three", "four"}, loaded[0].Samples)

	require.NoError(t, repo.Delete(ctx, "a"))
	require.NoError(t, repo.Delete(ctx, "missing"))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].Name)

	assert.ErrorIs(t, repo.Save(ctx, Object{Name: "empty"}), ErrEmptyObject)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(context.Background(), Object{Name: "x", Samples: []string{"y"}}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer second.Close()
	loaded, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
