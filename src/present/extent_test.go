package present

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtentIsZero(t *testing.T) {
	for idx, tc := range []struct {
		e    Extent
		zero bool
	}{
		{Extent{0, 0}, true},
		{Extent{1280, 0}, true},
		{Extent{0, 720}, true},
		{Extent{1, 1}, false},
		{Extent{7680, 4320}, false},
	} {
		t.Run(fmt.Sprintf("%d/%s", idx, tc.e), func(t *testing.T) {
			require.Equal(t, tc.zero, tc.e.IsZero())
		})
	}
}

func TestExtentWithin(t *testing.T) {
	min := Extent{800, 600}
	max := Extent{7680, 4320}
	for idx, tc := range []struct {
		e  Extent
		in bool
	}{
		{Extent{800, 600}, true},   // exact min
		{Extent{7680, 4320}, true}, // exact max
		{Extent{1280, 720}, true},
		{Extent{799, 600}, false}, // one unit below min
		{Extent{800, 599}, false},
		{Extent{7681, 4320}, false}, // one unit above max
		{Extent{7680, 4321}, false},
		{Extent{0, 0}, false},
	} {
		t.Run(fmt.Sprintf("%d/%s", idx, tc.e), func(t *testing.T) {
			require.Equal(t, tc.in, tc.e.Within(min, max))
		})
	}
}

func TestExtentClamp(t *testing.T) {
	min := Extent{800, 600}
	max := Extent{7680, 4320}
	for idx, tc := range []struct {
		e    Extent
		want Extent
	}{
		{Extent{100, 100}, Extent{800, 600}},
		{Extent{9000, 9000}, Extent{7680, 4320}},
		{Extent{1280, 720}, Extent{1280, 720}},
		{Extent{100, 9000}, Extent{800, 4320}},
	} {
		t.Run(fmt.Sprintf("%d/%s", idx, tc.e), func(t *testing.T) {
			require.Equal(t, tc.want, tc.e.Clamp(min, max))
		})
	}
}

func TestExtentAspectRatio(t *testing.T) {
	require.InDelta(t, 16.0/9.0, Extent{1920, 1080}.AspectRatio(), 1e-6)
	require.InDelta(t, 4.0/3.0, Extent{800, 600}.AspectRatio(), 1e-6)
	// Zero area never divides by zero.
	require.Equal(t, float32(1), Extent{0, 0}.AspectRatio())
	require.Equal(t, float32(1), Extent{1920, 0}.AspectRatio())
}
