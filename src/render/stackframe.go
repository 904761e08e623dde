package render

import (
	"fmt"
	"runtime"
)

type stackFrame struct {
	function string
	file     string
	line     int
}

func newStackFrame(pc uintptr) stackFrame {
	frame := stackFrame{function: "unknown"}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return frame
	}
	frame.function = fn.Name()
	frame.file, frame.line = fn.FileLine(pc)
	return frame
}

func (f stackFrame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.function, f.file, f.line)
}
