package record

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition indicates a call not allowed in the current state.
	ErrInvalidTransition = errors.New("record: invalid state transition")

	// ErrChainExhausted indicates no finalize strategy produced a buffer.
	ErrChainExhausted = errors.New("record: every finalize strategy failed")

	// ErrNoOutput indicates there is no finished recording to download.
	ErrNoOutput = errors.New("record: no output available")

	// ErrDisposed indicates use of a recorder after Dispose.
	ErrDisposed = errors.New("record: recorder disposed")

	// ErrUnsupported indicates a format, quality or backend that does not exist.
	ErrUnsupported = errors.New("record: unsupported option")

	// ErrEncoderClosed indicates a frame written after the encoder stopped.
	ErrEncoderClosed = errors.New("record: encoder closed")
)

// Code classifies a recording failure.
type Code string

const (
	CodeInitialization Code = "initialization"
	CodeEncoding       Code = "encoding"
	CodeCapture        Code = "capture"
	CodeDownload       Code = "download"
)

// Error is the failure type surfaced to callers. Recoverable errors allow
// the caller to retry from scratch.
type Error struct {
	Code        Code
	Message     string
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("record: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func initializationError(msg string, err error) *Error {
	return &Error{Code: CodeInitialization, Message: msg, Err: err}
}

func encodingError(msg string, err error) *Error {
	return &Error{Code: CodeEncoding, Message: msg, Recoverable: true, Err: err}
}

func captureError(frame int, err error) *Error {
	return &Error{Code: CodeCapture, Message: fmt.Sprintf("frame %d", frame), Recoverable: true, Err: err}
}

func downloadError(msg string, err error) *Error {
	return &Error{Code: CodeDownload, Message: msg, Recoverable: true, Err: err}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}
