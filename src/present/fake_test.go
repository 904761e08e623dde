package present

import (
	"errors"
	"fmt"
	"time"
)

// The fakes model the device/queue and window collaborators closely
// enough to exercise the whole state machine: GPU work "completes"
// when Submit signals the completion fence, acquire/present outcomes
// are scriptable per call, and every resource records destruction so
// tests can assert against leaks and double-frees.

type fakeFence struct {
	dev       *fakeDevice
	signaled  bool
	destroyed bool
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	if f.destroyed {
		panic("wait on destroyed fence")
	}
	if !f.signaled {
		return ErrWaitTimeout
	}
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) Signaled() bool { return f.signaled }

func (f *fakeFence) DestroyFence() {
	if f.destroyed {
		f.dev.doubleFrees++
	}
	f.destroyed = true
}

type fakeSemaphore struct {
	dev       *fakeDevice
	destroyed bool
}

func (s *fakeSemaphore) DestroySemaphore() {
	if s.destroyed {
		s.dev.doubleFrees++
	}
	s.destroyed = true
}

type fakeCommandBuffer struct {
	dev       *fakeDevice
	records   int
	destroyed bool
}

func (c *fakeCommandBuffer) DestroyCommandBuffer() {
	if c.destroyed {
		c.dev.doubleFrees++
	}
	c.destroyed = true
}

type fakeChain struct {
	dev       *fakeDevice
	extent    Extent
	destroyed bool
}

func (c *fakeChain) DestroyChain() {
	if c.destroyed {
		c.dev.doubleFrees++
	}
	c.destroyed = true
	c.dev.liveChains--
}

type fakeDepth struct {
	dev       *fakeDevice
	destroyed bool
}

func (d *fakeDepth) DestroyDepth() {
	if d.destroyed {
		d.dev.doubleFrees++
	}
	d.destroyed = true
	d.dev.liveDepths--
}

type fakeFramebuffer struct {
	dev       *fakeDevice
	index     int
	destroyed bool
}

func (f *fakeFramebuffer) DestroyFramebuffer() {
	if f.destroyed {
		f.dev.doubleFrees++
	}
	f.destroyed = true
	f.dev.liveFramebuffers--
}

type fakeDevice struct {
	imageCount int

	// Failure injection.
	failChain       error
	failDepth       error
	failFramebuffer error
	hangQueue       bool

	// Scripted outcomes, consumed one per call. Empty means OutcomeOK.
	acquireOutcomes []Outcome
	presentOutcomes []Outcome

	nextImage int

	// Accounting.
	chainsCreated    int
	acquires         int
	submits          int
	presents         int
	queueIdleWaits   int
	liveChains       int
	liveDepths       int
	liveFramebuffers int
	doubleFrees      int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{imageCount: 3}
}

func (d *fakeDevice) NewSemaphore() (Semaphore, error) {
	return &fakeSemaphore{dev: d}, nil
}

func (d *fakeDevice) NewFence(signaled bool) (Fence, error) {
	return &fakeFence{dev: d, signaled: signaled}, nil
}

func (d *fakeDevice) NewCommandBuffer() (CommandBuffer, error) {
	return &fakeCommandBuffer{dev: d}, nil
}

func (d *fakeDevice) CreateChain(extent Extent, old ChainHandle) (*ChainInfo, error) {
	if d.failChain != nil {
		return nil, d.failChain
	}
	if old != nil {
		if oc := old.(*fakeChain); oc.destroyed {
			return nil, errors.New("fake: old chain already destroyed")
		}
	}
	d.chainsCreated++
	d.liveChains++
	chain := &fakeChain{dev: d, extent: extent}
	views := make([]ImageView, d.imageCount)
	for i := range views {
		views[i] = fmt.Sprintf("view-%d-gen%d", i, d.chainsCreated)
	}
	return &ChainInfo{Handle: chain, Views: views, Extent: extent}, nil
}

func (d *fakeDevice) CreateDepth(extent Extent) (DepthBuffer, error) {
	if d.failDepth != nil {
		return nil, d.failDepth
	}
	d.liveDepths++
	return &fakeDepth{dev: d}, nil
}

func (d *fakeDevice) CreateFramebuffer(view ImageView, depth DepthBuffer, extent Extent) (Framebuffer, error) {
	if d.failFramebuffer != nil {
		return nil, d.failFramebuffer
	}
	d.liveFramebuffers++
	return &fakeFramebuffer{dev: d, index: d.liveFramebuffers - 1}, nil
}

func (d *fakeDevice) Acquire(chain ChainHandle, ready Semaphore) (int, Outcome, error) {
	if chain.(*fakeChain).destroyed {
		return 0, OutcomeOK, errors.New("fake: acquire on destroyed chain")
	}
	d.acquires++
	if len(d.acquireOutcomes) > 0 {
		out := d.acquireOutcomes[0]
		d.acquireOutcomes = d.acquireOutcomes[1:]
		if out == OutcomeStale {
			return 0, OutcomeStale, nil
		}
	}
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % d.imageCount
	return idx, OutcomeOK, nil
}

func (d *fakeDevice) Submit(cb CommandBuffer, wait, done Semaphore, completion Fence) error {
	d.submits++
	// The fake GPU finishes instantly.
	completion.(*fakeFence).signaled = true
	return nil
}

func (d *fakeDevice) Present(chain ChainHandle, index int, done Semaphore) (Outcome, error) {
	if chain.(*fakeChain).destroyed {
		return OutcomeOK, errors.New("fake: present on destroyed chain")
	}
	d.presents++
	if len(d.presentOutcomes) > 0 {
		out := d.presentOutcomes[0]
		d.presentOutcomes = d.presentOutcomes[1:]
		return out, nil
	}
	return OutcomeOK, nil
}

func (d *fakeDevice) WaitPresentIdle(timeout time.Duration) error {
	d.queueIdleWaits++
	if d.hangQueue {
		return ErrWaitTimeout
	}
	return nil
}

type fakeWindow struct {
	w, h       int
	closed     bool
	pollEvents int
}

func (w *fakeWindow) FramebufferSize() (int, int) { return w.w, w.h }
func (w *fakeWindow) PollEvents()                 { w.pollEvents++ }
func (w *fakeWindow) ShouldClose() bool           { return w.closed }

// countingRecorder records frames and remembers the views it was given.
type countingRecorder struct {
	frames []FrameView
	fail   error
}

func (r *countingRecorder) Record(cb CommandBuffer, frame FrameView) error {
	if r.fail != nil {
		return r.fail
	}
	cb.(*fakeCommandBuffer).records++
	r.frames = append(r.frames, frame)
	return nil
}
