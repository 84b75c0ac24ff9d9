package history

import (
	"fmt"
	"testing"

	"github.com/nicky-ayoub/ebitcompare/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenes(names ...string) []service.Scene {
	out := make([]service.Scene, len(names))
	for i, n := range names {
		out[i] = service.Scene{Path: n}
	}
	return out
}

func TestAddFollowsLatest(t *testing.T) {
	h := New()
	assert.Nil(t, h.Current())
	assert.Equal(t, -1, h.Index())

	assert.Equal(t, 2, h.Add(scenes("a.png", "b.png")...))
	require.NotNil(t, h.Current())
	assert.Equal(t, "b.png", h.Current().Path)

	assert.Equal(t, 0, h.Add(scenes("a.png")...), "duplicates are ignored")
	h.Add(scenes("c.png")...)
	assert.Equal(t, "c.png", h.Current().Path)
}

func TestSelectingOlderSceneStopsFollowing(t *testing.T) {
	h := New()
	h.Add(scenes("a.png", "b.png")...)
	require.NoError(t, h.SetIndex(0))
	assert.False(t, h.FollowsLatest())

	h.Add(scenes("c.png")...)
	assert.Equal(t, "a.png", h.Current().Path)

	require.NoError(t, h.SetIndex(2))
	assert.True(t, h.FollowsLatest())
	h.Add(scenes("d.png")...)
	assert.Equal(t, "d.png", h.Current().Path)

	assert.Error(t, h.SetIndex(9))
}

func TestNavigateWraps(t *testing.T) {
	h := New()
	h.Navigate(1)
	assert.Equal(t, -1, h.Index())

	h.Add(scenes("a.png", "b.png", "c.png")...)
	h.Navigate(1)
	assert.Equal(t, 0, h.Index())
	h.Navigate(-1)
	assert.Equal(t, 2, h.Index())
	h.Navigate(-4)
	assert.Equal(t, 1, h.Index())
}

func TestIsCurrentAfterNavigatingAwayAndBack(t *testing.T) {
	h := New()
	assert.False(t, h.IsCurrent("a.png"))

	h.Add(scenes("a.png", "b.png")...)
	require.NoError(t, h.SetIndex(0))
	assert.True(t, h.IsCurrent("a.png"))

	// a -> b -> a: a result for b arriving now is stale.
	h.Navigate(1)
	assert.True(t, h.IsCurrent("b.png"))
	h.Navigate(-1)
	assert.False(t, h.IsCurrent("b.png"))
	assert.True(t, h.IsCurrent("a.png"))
}

func TestRemove(t *testing.T) {
	h := New()
	h.Add(scenes("a.png", "b.png", "c.png")...)
	require.NoError(t, h.SetIndex(2))

	assert.False(t, h.Remove("a.png"))
	assert.Equal(t, 1, h.Index())
	assert.Equal(t, "c.png", h.Current().Path)

	assert.False(t, h.Remove("c.png"))
	assert.Equal(t, "b.png", h.Current().Path)

	assert.False(t, h.Remove("missing.png"))
	assert.True(t, h.Remove("b.png"))
	assert.Nil(t, h.Current())

	// A removed scene can be added again.
	assert.Equal(t, 1, h.Add(scenes("a.png")...))
}

func TestGetViewportItems(t *testing.T) {
	h := New()
	items, center := h.GetViewportItems(0, 5)
	assert.Empty(t, items)
	assert.Equal(t, -1, center)

	for i := 0; i < 10; i++ {
		h.Add(scenes(fmt.Sprintf("%d.png", i))...)
	}

	tests := []struct {
		name       string
		center     int
		wantFirst  int
		wantCenter int
	}{
		{"middle", 5, 3, 2},
		{"start", 0, 0, 0},
		{"end", 9, 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, center := h.GetViewportItems(tt.center, 5)
			require.Len(t, items, 5)
			assert.Equal(t, tt.wantFirst, items[0].Index)
			assert.Equal(t, tt.wantCenter, center)
			assert.Equal(t, tt.center, items[center].Index)
		})
	}

	small := New()
	small.Add(scenes("a.png", "b.png")...)
	items, center = small.GetViewportItems(1, 11)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, center)
}
