package report

import (
	"errors"
	"fmt"
)

// ErrReportProcessing marks a report file that could not be rewritten.
var ErrReportProcessing = errors.New("report processing failed")

// ProcessingError describes why one report file was skipped.
type ProcessingError struct {
	File string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrReportProcessing.
func (e *ProcessingError) Is(target error) bool {
	return target == ErrReportProcessing
}
