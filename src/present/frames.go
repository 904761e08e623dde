package present

import (
	"fmt"
	"time"
)

// FrameSlot is one reusable bundle of synchronization objects and a
// command buffer. Exactly N slots exist for the life of the engine;
// the swapchain's image count varies independently.
type FrameSlot struct {
	Index int

	// ImageAcquired signals on the GPU once the presentation engine
	// hands the acquired image over.
	ImageAcquired Semaphore

	// RenderFinished signals on the GPU when the slot's submitted work
	// completes, gating presentation.
	RenderFinished Semaphore

	// InFlight signals on the CPU when the slot's submitted work
	// completes. Must be waited before the command buffer is reused.
	InFlight Fence

	Cmd CommandBuffer

	// submitted tracks whether work is actually outstanding against
	// InFlight. A slot whose fence was reset but whose frame was then
	// abandoned (stale acquire) must not be waited on again, or the
	// loop deadlocks on the next cycle.
	submitted bool
}

// FrameSlots owns the fixed ring of frame slots and the active index.
type FrameSlots struct {
	dev     Device
	slots   []*FrameSlot
	active  int
	timeout time.Duration
}

// NewFrameSlots creates n slots up front. Fences start signaled so the
// first Acquire of each slot does not block.
func NewFrameSlots(dev Device, n int, timeout time.Duration) (*FrameSlots, error) {
	if n < 1 {
		return nil, fmt.Errorf("frame slots: count must be at least 1, got %d", n)
	}
	fs := &FrameSlots{dev: dev, timeout: timeout}
	for i := 0; i < n; i++ {
		slot, err := newFrameSlot(dev, i)
		if err != nil {
			fs.Destroy()
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		fs.slots = append(fs.slots, slot)
	}
	return fs, nil
}

func newFrameSlot(dev Device, index int) (*FrameSlot, error) {
	var err error
	s := &FrameSlot{Index: index}
	if s.ImageAcquired, err = dev.NewSemaphore(); err != nil {
		return nil, fmt.Errorf("image-acquired semaphore: %w", err)
	}
	if s.RenderFinished, err = dev.NewSemaphore(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("render-finished semaphore: %w", err)
	}
	if s.InFlight, err = dev.NewFence(true); err != nil {
		s.destroy()
		return nil, fmt.Errorf("in-flight fence: %w", err)
	}
	if s.Cmd, err = dev.NewCommandBuffer(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("command buffer: %w", err)
	}
	return s, nil
}

// Count returns the fixed slot count N.
func (fs *FrameSlots) Count() int { return len(fs.slots) }

// Acquire blocks until the active slot's previous frame has fully
// completed on the GPU, resets its fence for reuse and returns the slot.
// A wait past the bound means the device hung, which is fatal.
func (fs *FrameSlots) Acquire() (*FrameSlot, error) {
	slot := fs.slots[fs.active]
	if slot.submitted {
		if err := slot.InFlight.Wait(fs.timeout); err != nil {
			return nil, fmt.Errorf("frame slot %d completion: %w (%v)", slot.Index, ErrDeviceHang, err)
		}
		slot.submitted = false
	}
	if err := slot.InFlight.Reset(); err != nil {
		return nil, fmt.Errorf("frame slot %d fence reset: %w", slot.Index, err)
	}
	return slot, nil
}

// MarkSubmitted records that work was queued against the slot's fence.
// Only then will the next Acquire of this slot wait on it.
func (fs *FrameSlots) MarkSubmitted(slot *FrameSlot) {
	slot.submitted = true
}

// Advance cycles the active index modulo N.
func (fs *FrameSlots) Advance() {
	fs.active = (fs.active + 1) % len(fs.slots)
}

// Drain waits every slot's completion fence. This is the shutdown path:
// no swapchain resource may be destroyed before it returns.
func (fs *FrameSlots) Drain() error {
	for _, s := range fs.slots {
		if !s.submitted {
			continue
		}
		if err := s.InFlight.Wait(fs.timeout); err != nil {
			return fmt.Errorf("drain frame slot %d: %w (%v)", s.Index, ErrDeviceHang, err)
		}
		s.submitted = false
	}
	return nil
}

// Destroy frees all slot resources. Call only after Drain.
func (fs *FrameSlots) Destroy() {
	for _, s := range fs.slots {
		s.destroy()
	}
	fs.slots = nil
}

func (s *FrameSlot) destroy() {
	if s.ImageAcquired != nil {
		s.ImageAcquired.DestroySemaphore()
		s.ImageAcquired = nil
	}
	if s.RenderFinished != nil {
		s.RenderFinished.DestroySemaphore()
		s.RenderFinished = nil
	}
	if s.InFlight != nil {
		s.InFlight.DestroyFence()
		s.InFlight = nil
	}
	if s.Cmd != nil {
		s.Cmd.DestroyCommandBuffer()
		s.Cmd = nil
	}
}
