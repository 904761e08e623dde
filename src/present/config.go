package present

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults mirror the common tuning for a double-buffered desktop
// swapchain. They are configuration, not semantics: anything within the
// device's surface capabilities is fair game.
const (
	DefaultFramesInFlight        = 2
	DefaultSlotWaitTimeout       = 5 * time.Second
	DefaultQueueIdleTimeout      = 5 * time.Second
	DefaultMinimizedPollInterval = 50 * time.Millisecond
)

var (
	DefaultMinExtent = Extent{Width: 800, Height: 600}
	DefaultMaxExtent = Extent{Width: 7680, Height: 4320}
)

// Config is the recognized configuration surface of the engine.
type Config struct {
	// FramesInFlight is the fixed frame-slot count N. Constant for the
	// life of the engine instance, independent of the image count the
	// surface negotiates.
	FramesInFlight int `toml:"frames_in_flight"`

	// MinExtent and MaxExtent bound the extents Create/Recreate accept,
	// inclusive on both ends.
	MinExtent Extent `toml:"min_extent"`
	MaxExtent Extent `toml:"max_extent"`

	// VSync selects FIFO presentation; when false the driver prefers
	// Mailbox, then Immediate.
	VSync bool `toml:"vsync"`

	// SlotWaitTimeout bounds the wait on a frame slot's completion
	// fence. Expiry is treated as a device hang, not backpressure.
	SlotWaitTimeout time.Duration `toml:"slot_wait_timeout"`

	// QueueIdleTimeout bounds the presentation-queue drain performed
	// during a recreation.
	QueueIdleTimeout time.Duration `toml:"queue_idle_timeout"`

	// MinimizedPollInterval is how long the loop sleeps per tick while
	// the window is minimized.
	MinimizedPollInterval time.Duration `toml:"minimized_poll_interval"`
}

func DefaultConfig() Config {
	return Config{
		FramesInFlight:        DefaultFramesInFlight,
		MinExtent:             DefaultMinExtent,
		MaxExtent:             DefaultMaxExtent,
		VSync:                 true,
		SlotWaitTimeout:       DefaultSlotWaitTimeout,
		QueueIdleTimeout:      DefaultQueueIdleTimeout,
		MinimizedPollInterval: DefaultMinimizedPollInterval,
	}
}

func (c Config) Validate() error {
	if c.FramesInFlight < 1 {
		return fmt.Errorf("config: frames_in_flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.MinExtent.IsZero() {
		return fmt.Errorf("config: min_extent %s has zero area", c.MinExtent)
	}
	if !c.MaxExtent.Within(c.MinExtent, c.MaxExtent) {
		return fmt.Errorf("config: max_extent %s below min_extent %s", c.MaxExtent, c.MinExtent)
	}
	if c.SlotWaitTimeout <= 0 {
		return fmt.Errorf("config: slot_wait_timeout must be positive, got %v", c.SlotWaitTimeout)
	}
	if c.QueueIdleTimeout <= 0 {
		return fmt.Errorf("config: queue_idle_timeout must be positive, got %v", c.QueueIdleTimeout)
	}
	if c.MinimizedPollInterval <= 0 {
		return fmt.Errorf("config: minimized_poll_interval must be positive, got %v", c.MinimizedPollInterval)
	}
	return nil
}

// LoadConfig decodes a TOML config, filling unset fields from defaults.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := toml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}
