package present

import (
	"fmt"
	"log"
)

// State tracks swapchain validity across the engine's life.
type State int

const (
	// StateValid: the chain matches the surface and may be used.
	StateValid State = iota
	// StatePendingRecreate: a resize was observed or a Stale result
	// came back; a recreation is due at the next safe point.
	StatePendingRecreate
	// StateRecreating: a recreation is executing under the guard.
	StateRecreating
	// StateMinimized: the observed extent has zero area. No GPU work
	// happens at all until a nonzero extent returns.
	StateMinimized
	// StateInvalid: a recreation failed. A later resize may retry.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StatePendingRecreate:
		return "pending-recreate"
	case StateRecreating:
		return "recreating"
	case StateMinimized:
		return "minimized"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Swapchain owns the displayable-image chain and everything sized to
// it: the depth buffer and one framebuffer per image. Nothing else in
// the process holds owning references to any of these.
type Swapchain struct {
	dev Device
	cfg Config

	chain        ChainHandle
	views        []ImageView
	depth        DepthBuffer
	framebuffers []Framebuffer
	extent       Extent
	generation   uint64
	state        State

	// imagesInFlight maps image index -> the fence of whichever frame
	// slot last submitted work against that image. Entries are cleared,
	// not resized, on recreation: the old fences belong to work that
	// the pre-recreation queue drain already bounded.
	imagesInFlight []Fence

	// recreating is the single-writer guard. It is a field, not a
	// package global, so independent presentation contexts can coexist.
	recreating bool

	// OnResize, when set, receives the new aspect ratio and extent
	// after every successful create or recreate.
	OnResize func(aspect float32, extent Extent)

	// Recreations counts successful recreations, for diagnostics.
	Recreations uint64
}

// NewSwapchain prepares a controller without touching the device. Call
// Create before first use.
func NewSwapchain(dev Device, cfg Config) *Swapchain {
	return &Swapchain{dev: dev, cfg: cfg, state: StateInvalid}
}

// State returns the current validity state.
func (sc *Swapchain) State() State { return sc.state }

// Extent returns the extent the current chain was built for.
func (sc *Swapchain) Extent() Extent { return sc.extent }

// Generation returns the monotonic build counter. It changes only on
// full recreation, so a FrameView minted under an older generation can
// be rejected instead of dangling.
func (sc *Swapchain) Generation() uint64 { return sc.generation }

// ImageCount returns the number of displayable images in the chain.
func (sc *Swapchain) ImageCount() int { return len(sc.views) }

// MarkStale records that a recreation is due. Minimization wins over
// staleness: a minimized chain stays minimized until a usable extent
// shows up.
func (sc *Swapchain) MarkStale() {
	if sc.state == StateMinimized {
		return
	}
	sc.state = StatePendingRecreate
}

// MarkMinimized suspends all GPU work until a nonzero extent returns.
func (sc *Swapchain) MarkMinimized() {
	sc.state = StateMinimized
}

// Create validates the extent against the configured bounds and builds
// the chain, depth buffer and framebuffers. Any failure is fatal for
// the call and leaves nothing half-built.
func (sc *Swapchain) Create(extent Extent) error {
	if err := sc.checkExtent(extent); err != nil {
		return err
	}
	if err := sc.build(extent, nil); err != nil {
		return err
	}
	sc.state = StateValid
	return nil
}

func (sc *Swapchain) checkExtent(extent Extent) error {
	if extent.IsZero() {
		return fmt.Errorf("swapchain: zero-area extent %s: %w", extent, ErrExtentOutOfBounds)
	}
	if !extent.Within(sc.cfg.MinExtent, sc.cfg.MaxExtent) {
		return fmt.Errorf("swapchain: extent %s not in [%s, %s]: %w",
			extent, sc.cfg.MinExtent, sc.cfg.MaxExtent, ErrExtentOutOfBounds)
	}
	return nil
}

// build constructs chain-dependent state at the given extent, linking
// old when recreating. On success the new resources replace the current
// fields; on failure everything newly created is torn back down and the
// current fields are untouched (Create) or already gone (Recreate).
func (sc *Swapchain) build(extent Extent, old ChainHandle) error {
	info, err := sc.dev.CreateChain(extent, old)
	if err != nil {
		return fmt.Errorf("swapchain: create chain: %w", err)
	}
	depth, err := sc.dev.CreateDepth(info.Extent)
	if err != nil {
		info.Handle.DestroyChain()
		return fmt.Errorf("swapchain: create depth buffer: %w", err)
	}
	framebuffers := make([]Framebuffer, 0, len(info.Views))
	for i, view := range info.Views {
		fb, err := sc.dev.CreateFramebuffer(view, depth, info.Extent)
		if err != nil {
			for _, done := range framebuffers {
				done.DestroyFramebuffer()
			}
			depth.DestroyDepth()
			info.Handle.DestroyChain()
			return fmt.Errorf("swapchain: create framebuffer %d: %w", i, err)
		}
		framebuffers = append(framebuffers, fb)
	}

	sc.chain = info.Handle
	sc.views = info.Views
	sc.depth = depth
	sc.framebuffers = framebuffers
	sc.extent = info.Extent
	sc.generation++

	// Cleared, not resized: the previous generation's fences belong to
	// frame slots, and the tracker must never hold entries for images
	// that no longer exist.
	sc.imagesInFlight = make([]Fence, len(info.Views))

	if sc.OnResize != nil {
		sc.OnResize(info.Extent.AspectRatio(), info.Extent)
	}
	return nil
}

// Recreate executes the teardown-and-rebuild sequence under the
// single-writer guard. A second call while one is in progress is a
// no-op. The wait is scoped to the presentation queue, never the whole
// device, so the caller's event loop is not frozen for longer than the
// outstanding presentation work requires.
func (sc *Swapchain) Recreate(extent Extent) (err error) {
	if sc.recreating {
		return nil
	}
	sc.recreating = true
	defer func() { sc.recreating = false }()

	// Step 1: reject bad extents with state untouched.
	if cerr := sc.checkExtent(extent); cerr != nil {
		return cerr
	}
	sc.state = StateRecreating

	// Step 2: bound the wait. Outstanding presentation work against the
	// old images must drain before their views are destroyed.
	if werr := sc.dev.WaitPresentIdle(sc.cfg.QueueIdleTimeout); werr != nil {
		sc.state = StateInvalid
		return fmt.Errorf("swapchain: present queue drain: %w (%v)", ErrDeviceHang, werr)
	}

	// Step 3: destroy resources depending on the old image views. The
	// images themselves stay alive inside the old chain handle until
	// step 5, which is what the drain above was for.
	sc.destroyDependents()

	// Step 4: construct the replacement chain, linking the old handle.
	old := sc.chain
	if berr := sc.build(extent, old); berr != nil {
		// The old chain's dependents are already gone; the chain itself
		// is unusable for rendering but still valid to link from a
		// later retry. Mark invalid, keep the handle.
		sc.state = StateInvalid
		return berr
	}

	// Step 5: the new chain is live; drop the old handle's remains.
	if old != nil {
		old.DestroyChain()
	}

	sc.state = StateValid
	sc.Recreations++
	log.Printf("swapchain: recreated at %s (generation %d, %d images)",
		sc.extent, sc.generation, len(sc.views))
	return nil
}

func (sc *Swapchain) destroyDependents() {
	for _, fb := range sc.framebuffers {
		fb.DestroyFramebuffer()
	}
	sc.framebuffers = nil
	if sc.depth != nil {
		sc.depth.DestroyDepth()
		sc.depth = nil
	}
	sc.views = nil
}

// AcquireNextImage requests the next displayable image, signaling ready
// once the presentation engine releases it. OutcomeStale is expected
// and recoverable; the caller flips the pending-recreate flag.
func (sc *Swapchain) AcquireNextImage(ready Semaphore) (int, Outcome, error) {
	if sc.state != StateValid {
		return 0, OutcomeStale, ErrSwapchainInvalid
	}
	idx, outcome, err := sc.dev.Acquire(sc.chain, ready)
	if err != nil {
		return 0, outcome, fmt.Errorf("swapchain: acquire: %w", err)
	}
	return idx, outcome, nil
}

// Present submits the image for display after done signals.
func (sc *Swapchain) Present(index int, done Semaphore) (Outcome, error) {
	if sc.state != StateValid {
		return OutcomeStale, ErrSwapchainInvalid
	}
	outcome, err := sc.dev.Present(sc.chain, index, done)
	if err != nil {
		return outcome, fmt.Errorf("swapchain: present: %w", err)
	}
	return outcome, nil
}

// InFlightFence returns the fence of the frame slot that last wrote the
// image at index, or nil if no slot has touched it this generation.
func (sc *Swapchain) InFlightFence(index int) Fence {
	if index < 0 || index >= len(sc.imagesInFlight) {
		return nil
	}
	return sc.imagesInFlight[index]
}

// TrackImage records that the given fence guards the image at index.
func (sc *Swapchain) TrackImage(index int, f Fence) {
	if index >= 0 && index < len(sc.imagesInFlight) {
		sc.imagesInFlight[index] = f
	}
}

// FrameView mints a non-owning borrow of the image at index, tagged
// with the current generation.
func (sc *Swapchain) FrameView(index int) (FrameView, error) {
	if index < 0 || index >= len(sc.framebuffers) {
		return FrameView{}, fmt.Errorf("swapchain: image index %d out of range [0, %d)", index, len(sc.framebuffers))
	}
	return FrameView{
		ImageIndex:  index,
		Framebuffer: sc.framebuffers[index],
		Extent:      sc.extent,
		Generation:  sc.generation,
	}, nil
}

// CheckView verifies a borrowed view still belongs to the live chain.
func (sc *Swapchain) CheckView(v FrameView) error {
	if v.Generation != sc.generation {
		return fmt.Errorf("%w (view generation %d, current %d)", ErrStaleFrameView, v.Generation, sc.generation)
	}
	return nil
}

// Destroy tears everything down. The caller must have drained all
// in-flight GPU work first; the controller does not wait here.
func (sc *Swapchain) Destroy() {
	sc.destroyDependents()
	if sc.chain != nil {
		sc.chain.DestroyChain()
		sc.chain = nil
	}
	sc.imagesInFlight = nil
	sc.state = StateInvalid
}
