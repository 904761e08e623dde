package present

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	require.Equal(t, 2, c.FramesInFlight)
	require.Equal(t, Extent{800, 600}, c.MinExtent)
	require.Equal(t, Extent{7680, 4320}, c.MaxExtent)
	require.True(t, c.VSync)
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero frames", func(c *Config) { c.FramesInFlight = 0 }},
		{"negative frames", func(c *Config) { c.FramesInFlight = -1 }},
		{"zero-area min extent", func(c *Config) { c.MinExtent = Extent{0, 600} }},
		{"max below min", func(c *Config) { c.MaxExtent = Extent{640, 480} }},
		{"zero slot timeout", func(c *Config) { c.SlotWaitTimeout = 0 }},
		{"zero queue timeout", func(c *Config) { c.QueueIdleTimeout = 0 }},
		{"zero poll interval", func(c *Config) { c.MinimizedPollInterval = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	doc := `
frames_in_flight = 3
vsync = false

[min_extent]
width = 640
height = 480

[max_extent]
width = 3840
height = 2160
`
	c, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 3, c.FramesInFlight)
	require.False(t, c.VSync)
	require.Equal(t, Extent{640, 480}, c.MinExtent)
	require.Equal(t, Extent{3840, 2160}, c.MaxExtent)
	// Unset fields keep their defaults.
	require.Equal(t, DefaultSlotWaitTimeout, c.SlotWaitTimeout)
	require.Equal(t, DefaultMinimizedPollInterval, c.MinimizedPollInterval)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("frames_in_flight = 0\n"))
	require.Error(t, err)

	_, err = LoadConfig(strings.NewReader("frames_in_flight = \"oops"))
	require.Error(t, err)
}

func TestLoadConfigDurations(t *testing.T) {
	doc := "slot_wait_timeout = 1000000000\n"
	c, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, time.Second, c.SlotWaitTimeout)
}
