package render

import (
	"fmt"
	"runtime"

	"github.com/vulkan-go/vulkan"

	"prism/src/present"
)

// NewError converts a non-success vulkan result into an error carrying
// the caller's stack frame.
func NewError(retVal vulkan.Result) error {
	if retVal != vulkan.Success {
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			return fmt.Errorf("vulkan error: %w (%d)", vulkan.Error(retVal), retVal)
		}
		frame := newStackFrame(pc)
		return fmt.Errorf("vulkan error: %w (%d) on %s",
			vulkan.Error(retVal), retVal, frame.String())
	}
	return nil
}

func IsError(retVal vulkan.Result) bool {
	return retVal != vulkan.Success
}

// classify maps device-level results onto the core's error taxonomy so
// the presentation loop can tell fatal conditions from recoverable
// ones. Out-of-date and suboptimal results never come through here;
// they are outcomes, not errors.
func classify(retVal vulkan.Result) error {
	switch retVal {
	case vulkan.Success:
		return nil
	case vulkan.ErrorDeviceLost:
		return fmt.Errorf("%w: %v", present.ErrDeviceLost, NewError(retVal))
	case vulkan.ErrorOutOfHostMemory, vulkan.ErrorOutOfDeviceMemory:
		return fmt.Errorf("%w: %v", present.ErrOutOfMemory, NewError(retVal))
	default:
		return NewError(retVal)
	}
}

func OrPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

func CheckError(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%+v", v)
	}
}
