package present

import "errors"

// The split here matters: staleness and minimization are Outcomes handled
// by the state machine and never appear as errors. Everything below is a
// genuine failure.
var (
	// ErrWaitTimeout is returned by Fence.Wait and Device.WaitPresentIdle
	// when the bounded wait expires.
	ErrWaitTimeout = errors.New("present: wait timed out")

	// ErrDeviceHang wraps a timeout observed where ordinary backpressure
	// cannot explain it: a frame slot's completion fence or the present
	// queue staying unsignaled past the configured bound. Fatal, never
	// retried.
	ErrDeviceHang = errors.New("present: device hang suspected")

	// ErrDeviceLost is the collaborator's translation of a lost device.
	// Fatal; must not be masked as a stale swapchain.
	ErrDeviceLost = errors.New("present: device lost")

	// ErrOutOfMemory is the collaborator's translation of a host or
	// device allocation failure. Fatal.
	ErrOutOfMemory = errors.New("present: out of memory")

	// ErrExtentOutOfBounds rejects a create/recreate extent that is
	// zero-area or outside the configured bounds. Existing state is
	// left untouched; not fatal for a running loop.
	ErrExtentOutOfBounds = errors.New("present: extent outside supported bounds")

	// ErrSwapchainInvalid is returned for acquire/present attempts while
	// the swapchain is in the Invalid state (a failed recreation that has
	// not yet been retried).
	ErrSwapchainInvalid = errors.New("present: swapchain invalid")

	// ErrStaleFrameView is returned when a borrowed frame view is used
	// after the swapchain generation it was minted under was replaced.
	ErrStaleFrameView = errors.New("present: frame view outlived its swapchain generation")
)

// IsFatal reports whether err terminates the presentation loop. Stale
// results never reach here; anything that does and matches the fatal
// sentinels (or is otherwise unknown) stops the loop.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDeviceHang) ||
		errors.Is(err, ErrDeviceLost) ||
		errors.Is(err, ErrOutOfMemory)
}
