package present

// Window is the window/surface collaborator. The loop calls these every
// tick. A (0,0) framebuffer size means the window is minimized.
type Window interface {
	FramebufferSize() (w, h int)
	PollEvents()
	ShouldClose() bool
}

// Recorder is the external command-recording collaborator. It populates
// the slot's command buffer for one frame; what it records is no concern
// of this package.
type Recorder interface {
	Record(cb CommandBuffer, frame FrameView) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(cb CommandBuffer, frame FrameView) error

func (f RecorderFunc) Record(cb CommandBuffer, frame FrameView) error {
	return f(cb, frame)
}

// FrameView is a non-owning borrow of one displayable image, valid for
// the duration of a single frame. Generation tags the swapchain build it
// was minted under; holding a view across a recreation is detectable by
// comparing generations rather than silently dangling.
type FrameView struct {
	ImageIndex  int
	Framebuffer Framebuffer
	Extent      Extent
	Generation  uint64
}
