package present

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Extent is a pixel size reported by the surface or requested for the
// swapchain. A zero-area extent means the window is minimized.
type Extent struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// IsZero reports whether the extent covers no pixels. Either dimension
// being zero makes the whole surface unpresentable.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Within reports whether e lies inside the inclusive [min, max] bounds
// on both axes.
func (e Extent) Within(min, max Extent) bool {
	if e.Width < min.Width || e.Height < min.Height {
		return false
	}
	if e.Width > max.Width || e.Height > max.Height {
		return false
	}
	return true
}

// Clamp returns e limited to the inclusive [min, max] bounds.
func (e Extent) Clamp(min, max Extent) Extent {
	c := e
	if c.Width < min.Width {
		c.Width = min.Width
	}
	if c.Width > max.Width {
		c.Width = max.Width
	}
	if c.Height < min.Height {
		c.Height = min.Height
	}
	if c.Height > max.Height {
		c.Height = max.Height
	}
	return c
}

// AspectRatio is width over height. Returns 1 for a zero-area extent so
// downstream projection math never divides by zero.
func (e Extent) AspectRatio() float32 {
	if e.IsZero() {
		return 1
	}
	return math32.Abs(float32(e.Width) / float32(e.Height))
}
