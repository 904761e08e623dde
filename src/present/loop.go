package present

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Loop orchestrates one logical frame per tick: poll, maybe recreate,
// acquire a slot, acquire an image, record, submit, present, advance.
// It is a single-threaded cooperative loop on the CPU side; the GPU
// runs asynchronously and the two meet only at fences and semaphores.
type Loop struct {
	win    Window
	dev    Device
	rec    Recorder
	cfg    Config
	slots  *FrameSlots
	chain  *Swapchain
	resize *ResizeCoordinator

	// sleep is swappable so minimized-window tests do not burn wall
	// clock time.
	sleep func(time.Duration)

	// FramesPresented counts successfully presented frames.
	FramesPresented uint64
}

// NewLoop builds the engine: N frame slots and an initial swapchain at
// the window's current framebuffer size. Startup failures are fatal.
func NewLoop(win Window, dev Device, rec Recorder, cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slots, err := NewFrameSlots(dev, cfg.FramesInFlight, cfg.SlotWaitTimeout)
	if err != nil {
		return nil, err
	}
	chain := NewSwapchain(dev, cfg)
	w, h := win.FramebufferSize()
	if err := chain.Create(Extent{Width: uint32(w), Height: uint32(h)}); err != nil {
		slots.Destroy()
		return nil, err
	}
	return &Loop{
		win:    win,
		dev:    dev,
		rec:    rec,
		cfg:    cfg,
		slots:  slots,
		chain:  chain,
		resize: NewResizeCoordinator(chain.Extent()),
		sleep:  time.Sleep,
	}, nil
}

// Swapchain exposes the controller, e.g. to hook OnResize.
func (l *Loop) Swapchain() *Swapchain { return l.chain }

// Run ticks until the window asks to close, then shuts down in order.
// Recoverable conditions never surface here; any returned error is
// fatal and the loop is already stopped.
func (l *Loop) Run() error {
	for !l.win.ShouldClose() {
		if err := l.Tick(); err != nil {
			l.Shutdown()
			return fmt.Errorf("presentation loop: %w", err)
		}
	}
	l.Shutdown()
	return nil
}

// Tick performs one logical frame. Stale acquire/present results and
// minimized windows are absorbed by the state machine; only genuine
// device failures come back as errors.
func (l *Loop) Tick() error {
	l.win.PollEvents()

	// Size observation first: minimization must suppress every GPU
	// call this tick, including a pending recreation.
	if w, h := l.win.FramebufferSize(); l.resize.Observe(w, h) == SizeMinimized {
		l.chain.MarkMinimized()
		l.sleep(l.cfg.MinimizedPollInterval)
		return nil
	}

	// A due recreation runs at this safe point, between frames, and
	// rendering defers to the next tick.
	if extent, due := l.resize.Pending(); due || l.chain.State() != StateValid {
		if !due {
			// Stale result or minimize recovery with no size change.
			extent = l.currentExtent()
		}
		if err := l.chain.Recreate(extent); err != nil {
			if errors.Is(err, ErrExtentOutOfBounds) {
				// Rejected with state untouched. Drop the request and
				// keep rendering at the current extent.
				log.Printf("swapchain: %v", err)
				l.resize.Reject()
				return nil
			}
			if IsFatal(err) {
				return err
			}
			// Creation failure during a live resize: stay invalid,
			// guard already cleared, a later tick retries.
			log.Printf("swapchain: recreation at %s failed, will retry: %v", extent, err)
			return nil
		}
		l.resize.Rebuilt(l.chain.Extent())
		return nil
	}

	slot, err := l.slots.Acquire()
	if err != nil {
		return err
	}

	index, outcome, err := l.chain.AcquireNextImage(slot.ImageAcquired)
	if err != nil {
		return err
	}
	if outcome == OutcomeStale {
		l.chain.MarkStale()
		return nil
	}

	// A different slot from an earlier cycle may still be draining
	// against this same image; writing into it before that work ends
	// would corrupt what the presentation engine is displaying.
	if prev := l.chain.InFlightFence(index); prev != nil && prev != slot.InFlight {
		if werr := prev.Wait(l.cfg.SlotWaitTimeout); werr != nil {
			return fmt.Errorf("image %d still in flight: %w (%v)", index, ErrDeviceHang, werr)
		}
	}

	frame, err := l.chain.FrameView(index)
	if err != nil {
		return err
	}
	if err := l.rec.Record(slot.Cmd, frame); err != nil {
		return fmt.Errorf("record frame: %w", err)
	}

	if err := l.dev.Submit(slot.Cmd, slot.ImageAcquired, slot.RenderFinished, slot.InFlight); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	l.slots.MarkSubmitted(slot)
	l.chain.TrackImage(index, slot.InFlight)

	outcome, err = l.chain.Present(index, slot.RenderFinished)
	if err != nil {
		return err
	}
	if outcome == OutcomeStale {
		l.chain.MarkStale()
	} else {
		l.FramesPresented++
	}

	l.slots.Advance()
	return nil
}

func (l *Loop) currentExtent() Extent {
	w, h := l.win.FramebufferSize()
	return Extent{Width: uint32(w), Height: uint32(h)}
}

// Shutdown drains every frame slot's completion fence, then destroys
// the swapchain and its dependents, then the slots. Safe to call more
// than once.
func (l *Loop) Shutdown() {
	if l.slots == nil {
		return
	}
	if err := l.slots.Drain(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	l.chain.Destroy()
	l.slots.Destroy()
	l.slots = nil
}
