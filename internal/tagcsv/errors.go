package tagcsv

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Stage failures wrap one of these; callers match them with
// errors.Is against the error returned by Cascade.Parse.
var (
	ErrEmptyFile      = errors.New("empty file")
	ErrMissingFile    = errors.New("file does not exist")
	ErrDecode         = errors.New("decode error")
	ErrInvalidHeader  = errors.New("invalid header")
	ErrNoData         = errors.New("no data rows")
	ErrMalformedRow   = errors.New("malformed row")
	ErrFileTooLarge   = errors.New("file too large")
	ErrUnreadableFile = errors.New("unreadable file")
)

// StageError records why one strategy of the cascade gave up.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ParseError is the terminal failure of Cascade.Parse. It matches
// ErrUnreadableFile and every stage cause.
type ParseError struct {
	Path     string
	Failures []*StageError
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Path, ErrUnreadableFile)
	for _, f := range e.Failures {
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrUnreadableFile)
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
