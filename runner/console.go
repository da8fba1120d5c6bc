package runner

import (
	"fmt"
	"io"

	"github.com/gookit/color"
)

// ConsoleSink prints program output to a writer, with runtime errors
// colored and prefixed so they stand apart from the program's own
// prints.
type ConsoleSink struct {
	Out io.Writer
	Err io.Writer
}

func (s *ConsoleSink) Print(text string) {
	fmt.Fprintln(s.Out, text)
}

func (s *ConsoleSink) ReportError(text string) {
	fmt.Fprintln(s.Err, color.Red.Sprint("error: ")+text)
}
