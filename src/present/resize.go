package present

// Classification is the ResizeCoordinator's verdict on one tick's
// observed window size.
type Classification int

const (
	// SizeUnchanged: the window still matches the chain.
	SizeUnchanged Classification = iota
	// SizeResized: a usable, different size was observed; a recreation
	// is due at the next safe point.
	SizeResized
	// SizeMinimized: zero-area. Never classified as a resize; all
	// recreation attempts are suppressed until a nonzero size returns.
	SizeMinimized
)

func (c Classification) String() string {
	switch c {
	case SizeUnchanged:
		return "unchanged"
	case SizeResized:
		return "resized"
	case SizeMinimized:
		return "minimized"
	default:
		return "unknown"
	}
}

// ResizeCoordinator turns per-tick size observations into deferred,
// debounced recreation requests. It never recreates anything itself:
// the loop executes the pending request between frames, when no command
// buffer referencing the current images is being recorded.
type ResizeCoordinator struct {
	built    Extent
	pending  Extent
	rejected Extent
	due      bool
}

// NewResizeCoordinator starts from the extent the initial chain was
// built for.
func NewResizeCoordinator(built Extent) *ResizeCoordinator {
	return &ResizeCoordinator{built: built}
}

// Observe compares the window's current pixel size against the size the
// active chain was built for. A repeat observation of an already-pending
// size is debounced into the existing request.
func (rc *ResizeCoordinator) Observe(w, h int) Classification {
	if w <= 0 || h <= 0 {
		rc.due = false
		return SizeMinimized
	}
	seen := Extent{Width: uint32(w), Height: uint32(h)}
	if seen == rc.built || seen == rc.rejected {
		rc.due = false
		return SizeUnchanged
	}
	rc.pending = seen
	rc.due = true
	return SizeResized
}

// Pending returns the extent a due recreation should target.
func (rc *ResizeCoordinator) Pending() (Extent, bool) {
	return rc.pending, rc.due
}

// Reject records that the pending extent was refused (outside supported
// bounds). The request is dropped and the same size will not re-arm a
// recreation until a different one is observed.
func (rc *ResizeCoordinator) Reject() {
	rc.rejected = rc.pending
	rc.due = false
}

// Rebuilt records that the chain now matches extent and clears the
// pending request.
func (rc *ResizeCoordinator) Rebuilt(extent Extent) {
	rc.built = extent
	rc.rejected = Extent{}
	rc.due = false
}
