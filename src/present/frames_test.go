package present

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameSlotsCreation(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 2, time.Second)
	require.NoError(t, err)
	defer fs.Destroy()

	require.Equal(t, 2, fs.Count())

	_, err = NewFrameSlots(dev, 0, time.Second)
	require.Error(t, err)
}

func TestFrameSlotsAcquireAdvanceCycle(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 2, time.Second)
	require.NoError(t, err)
	defer fs.Destroy()

	// Fences start signaled, so first acquires never block.
	for _, wantIndex := range []int{0, 1, 0, 1, 0} {
		slot, err := fs.Acquire()
		require.NoError(t, err)
		require.Equal(t, wantIndex, slot.Index)
		// Acquire resets the completion fence for reuse.
		require.False(t, slot.InFlight.Signaled())
		fs.Advance()
	}
}

func TestFrameSlotsAcquireWaitsOnlyForSubmittedWork(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 1, time.Second)
	require.NoError(t, err)
	defer fs.Destroy()

	// A slot whose frame was abandoned after the fence reset (stale
	// acquire path) must be reacquirable without waiting.
	slot, err := fs.Acquire()
	require.NoError(t, err)
	fs.Advance()
	reslot, err := fs.Acquire()
	require.NoError(t, err)
	require.Same(t, slot, reslot)
}

func TestFrameSlotsHangIsFatal(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 1, time.Second)
	require.NoError(t, err)
	defer fs.Destroy()

	slot, err := fs.Acquire()
	require.NoError(t, err)
	fs.MarkSubmitted(slot) // work queued but the fake GPU never signals
	fs.Advance()

	_, err = fs.Acquire()
	require.ErrorIs(t, err, ErrDeviceHang)
}

func TestFrameSlotsDrain(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 2, time.Second)
	require.NoError(t, err)
	defer fs.Destroy()

	slot, err := fs.Acquire()
	require.NoError(t, err)
	require.NoError(t, dev.Submit(slot.Cmd, slot.ImageAcquired, slot.RenderFinished, slot.InFlight))
	fs.MarkSubmitted(slot)

	require.NoError(t, fs.Drain())

	// An outstanding, never-completing submission makes Drain fail.
	slot2, err := fs.Acquire()
	require.NoError(t, err)
	fs.MarkSubmitted(slot2)
	require.ErrorIs(t, fs.Drain(), ErrDeviceHang)
}

func TestFrameSlotsDestroyFreesEverything(t *testing.T) {
	dev := newFakeDevice()
	fs, err := NewFrameSlots(dev, 3, time.Second)
	require.NoError(t, err)
	fs.Destroy()
	require.Zero(t, dev.doubleFrees)
	// Destroy twice is harmless.
	fs.Destroy()
	require.Zero(t, dev.doubleFrees)
}
