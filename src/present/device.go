package present

import "time"

// Outcome classifies the result of an acquire or present call. Stale is
// an expected, recoverable condition: the surface no longer matches the
// chain and a recreation is due. It is never reported as an error.
type Outcome int

const (
	// OutcomeOK means the image was acquired or queued for display.
	OutcomeOK Outcome = iota
	// OutcomeStale means the swapchain must be rebuilt before the
	// surface can be used again. Suboptimal results map here too.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Semaphore is a GPU-side ordering signal. The core never inspects it;
// it only threads it between acquire, submit and present.
type Semaphore interface {
	DestroySemaphore()
}

// Fence is a CPU-observable completion signal.
type Fence interface {
	// Wait blocks until the fence signals or the bounded timeout
	// expires, in which case it returns ErrWaitTimeout.
	Wait(timeout time.Duration) error
	Reset() error
	Signaled() bool
	DestroyFence()
}

// CommandBuffer is the recording target handed to the external command
// recorder each frame. Opaque to the core.
type CommandBuffer interface {
	DestroyCommandBuffer()
}

// ImageView, DepthBuffer and Framebuffer are opaque handles to
// swapchain-sized resources. The core owns their lifetime ordering but
// never looks inside them.
type (
	ImageView   interface{}
	DepthBuffer interface {
		DestroyDepth()
	}
	Framebuffer interface {
		DestroyFramebuffer()
	}
)

// ChainHandle is the displayable-image chain itself.
type ChainHandle interface {
	DestroyChain()
}

// ChainInfo describes a freshly created image chain. The image count is
// negotiated with the surface and may differ from the frame-slot count.
type ChainInfo struct {
	Handle ChainHandle
	Views  []ImageView
	Extent Extent
}

// Device is the device/queue collaborator consumed by the core. One
// implementation wraps a real Vulkan device (src/render); tests use a
// fake. All blocking entry points take bounded timeouts; there is no
// whole-device idle wait on purpose.
type Device interface {
	// Sync-object and command-buffer factories, used once at startup to
	// populate the frame slots.
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
	NewCommandBuffer() (CommandBuffer, error)

	// CreateChain builds a displayable-image chain at the given extent.
	// old, when non-nil, is the previous chain handle so the driver can
	// reuse internal state across a recreation. The old chain is still
	// owned by the caller and must be destroyed separately.
	CreateChain(extent Extent, old ChainHandle) (*ChainInfo, error)
	CreateDepth(extent Extent) (DepthBuffer, error)
	CreateFramebuffer(view ImageView, depth DepthBuffer, extent Extent) (Framebuffer, error)

	// Acquire requests the next displayable image from the chain,
	// signaling ready when the presentation engine releases it.
	Acquire(chain ChainHandle, ready Semaphore) (int, Outcome, error)

	// Submit queues the recorded commands: waits wait on the GPU,
	// signals done on the GPU, and signals completion on the CPU when
	// the work finishes.
	Submit(cb CommandBuffer, wait, done Semaphore, completion Fence) error

	// Present queues image index for display once done signals.
	Present(chain ChainHandle, index int, done Semaphore) (Outcome, error)

	// WaitPresentIdle drains outstanding work on the presentation queue
	// only. Returns ErrWaitTimeout past the bound.
	WaitPresentIdle(timeout time.Duration) error
}
