package present

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResizeObserve(t *testing.T) {
	for idx, tc := range []struct {
		built Extent
		w, h  int
		want  Classification
	}{
		{Extent{1280, 720}, 1280, 720, SizeUnchanged},
		{Extent{1280, 720}, 1920, 1080, SizeResized},
		{Extent{1280, 720}, 0, 0, SizeMinimized},
		{Extent{1280, 720}, 0, 720, SizeMinimized},
		{Extent{1280, 720}, 1280, 0, SizeMinimized},
		{Extent{1280, 720}, -1, 720, SizeMinimized},
	} {
		t.Run(fmt.Sprintf("%d/%dx%d", idx, tc.w, tc.h), func(t *testing.T) {
			rc := NewResizeCoordinator(tc.built)
			require.Equal(t, tc.want, rc.Observe(tc.w, tc.h))
		})
	}
}

func TestResizeDefersRatherThanActs(t *testing.T) {
	rc := NewResizeCoordinator(Extent{1280, 720})

	_, due := rc.Pending()
	require.False(t, due)

	require.Equal(t, SizeResized, rc.Observe(1920, 1080))
	pending, due := rc.Pending()
	require.True(t, due)
	require.Equal(t, Extent{1920, 1080}, pending)

	// Repeat observations debounce into the one pending request.
	require.Equal(t, SizeResized, rc.Observe(1920, 1080))
	pending, due = rc.Pending()
	require.True(t, due)
	require.Equal(t, Extent{1920, 1080}, pending)

	rc.Rebuilt(Extent{1920, 1080})
	_, due = rc.Pending()
	require.False(t, due)
	require.Equal(t, SizeUnchanged, rc.Observe(1920, 1080))
}

func TestResizeMinimizedSuppressesPending(t *testing.T) {
	rc := NewResizeCoordinator(Extent{1280, 720})
	rc.Observe(1920, 1080)

	// Minimization never counts as a resize and clears any pending
	// request until a usable size returns.
	require.Equal(t, SizeMinimized, rc.Observe(0, 0))
	_, due := rc.Pending()
	require.False(t, due)

	require.Equal(t, SizeResized, rc.Observe(1920, 1080))
	_, due = rc.Pending()
	require.True(t, due)
}

func TestResizeRejectedSizeDoesNotRearm(t *testing.T) {
	rc := NewResizeCoordinator(Extent{1280, 720})
	require.Equal(t, SizeResized, rc.Observe(100, 100))
	rc.Reject()

	// The refused size is remembered and stops re-arming every tick.
	require.Equal(t, SizeUnchanged, rc.Observe(100, 100))
	_, due := rc.Pending()
	require.False(t, due)

	// A different size arms again.
	require.Equal(t, SizeResized, rc.Observe(1920, 1080))
}
