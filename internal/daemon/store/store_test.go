package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/models"
)

func TestCreateDefaults(t *testing.T) {
	s := New()

	inc, err := s.Create("Broken door", "Main entrance door does not close", "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), inc.ID)
	assert.Equal(t, models.StatePending, inc.State)
	assert.Equal(t, models.AnonymousAuthor, inc.Author)
	assert.True(t, inc.CreatedAt.Equal(inc.UpdatedAt), "timestamps must be stamped equal on create")
	assert.Empty(t, inc.LastModifier)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
	}{
		{name: "empty title", title: "", description: "something happened"},
		{name: "whitespace title", title: "   ", description: "something happened"},
		{name: "empty description", title: "Leak", description: ""},
		{name: "whitespace description", title: "Leak", description: "\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			_, err := s.Create(tt.title, tt.description, "juan")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeValidation))
			assert.Equal(t, 0, s.Len(), "failed create must not mutate the store")
		})
	}
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	s := New()
	for i := 1; i <= 5; i++ {
		inc, err := s.Create("Incident", "description", "ana")
		require.NoError(t, err)
		assert.Equal(t, int64(i), inc.ID)
	}
}

func TestUpdateState(t *testing.T) {
	s := New()
	created, err := s.Create("Flood", "Water in the server room", "ana")
	require.NoError(t, err)

	updated, previous, err := s.UpdateState(created.ID, "in_progress", "admin")
	require.NoError(t, err)

	assert.Equal(t, models.StatePending, previous)
	assert.Equal(t, models.StateInProgress, updated.State)
	assert.Equal(t, "admin", updated.LastModifier)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestUpdateStateAcceptsLegacyAliases(t *testing.T) {
	s := New()
	created, err := s.Create("Robo", "Robo en biblioteca", "juan")
	require.NoError(t, err)

	updated, _, err := s.UpdateState(created.ID, "resuelto", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, updated.State)
}

func TestUpdateStateAnyToAny(t *testing.T) {
	// No workflow graph: every state is reachable from every state,
	// including itself.
	s := New()
	created, err := s.Create("Outage", "Network down on floor 3", "")
	require.NoError(t, err)

	sequence := []string{"resolved", "pending", "in_progress", "in_progress", "resolved"}
	for _, next := range sequence {
		updated, _, err := s.UpdateState(created.ID, next, "")
		require.NoError(t, err)
		assert.Equal(t, models.State(next), updated.State)
	}
}

func TestUpdateStateRepeatRefreshesUpdatedAt(t *testing.T) {
	s := New()
	created, err := s.Create("Outage", "Network down", "")
	require.NoError(t, err)

	first, _, err := s.UpdateState(created.ID, "resolved", "admin")
	require.NoError(t, err)
	second, previous, err := s.UpdateState(created.ID, "resolved", "admin")
	require.NoError(t, err)

	assert.Equal(t, models.StateResolved, previous)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestUpdateStateErrors(t *testing.T) {
	s := New()
	created, err := s.Create("Leak", "Gas smell near lab", "")
	require.NoError(t, err)

	_, _, err = s.UpdateState(999, "resolved", "")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, _, err = s.UpdateState(created.ID, "archived", "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))

	// An unknown id wins over a bad state value
	_, _, err = s.UpdateState(999, "archived", "")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	// Store untouched by the failed update
	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, got.State)
}

func TestDelete(t *testing.T) {
	s := New()
	created, err := s.Create("Robo", "Robo en biblioteca", "juan")
	require.NoError(t, err)

	removed, err := s.Delete(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)

	_, err = s.Get(created.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = s.Delete(created.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	assert.Empty(t, s.List())
}

func TestDeleteDoesNotReuseIDs(t *testing.T) {
	s := New()
	first, err := s.Create("First", "first", "")
	require.NoError(t, err)
	_, err = s.Delete(first.ID)
	require.NoError(t, err)

	second, err := s.Create("Second", "second", "")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestListInsertionOrder(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		_, err := s.Create(fmt.Sprintf("Incident %d", i), "description", "")
		require.NoError(t, err)
	}

	items := s.List()
	require.Len(t, items, 4)
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1].ID, items[i].ID)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := New()
	created, err := s.Create("Tamper", "Camera moved", "")
	require.NoError(t, err)

	items := s.List()
	items[0].Title = "mutated"
	items[0].State = models.StateResolved

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tamper", got.Title)
	assert.Equal(t, models.StatePending, got.State)
}

func TestConcurrentCreates(t *testing.T) {
	const n = 50

	s := New()
	var wg sync.WaitGroup
	ids := make(chan int64, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inc, err := s.Create(fmt.Sprintf("Incident %d", i), "concurrent create", "")
			assert.NoError(t, err)
			ids <- inc.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	assert.Equal(t, n, s.Len())
	assert.Len(t, seen, n)
}
