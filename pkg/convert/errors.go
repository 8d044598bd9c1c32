package convert

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned by an Encoder when the source bytes are
// not in any recognized image format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DiscoveryError reports a fatal discovery failure: the source root does not
// exist or is not a directory. No conversion is attempted after it.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %q: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// CodecError wraps an Encoder failure with the pipeline stage it occurred in
// (KindDecode or KindEncode), so the pool can classify the JobResult.
type CodecError struct {
	Stage ErrorKind
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// classifyEncodeErr maps an Encoder error to a per-job ErrorKind.
func classifyEncodeErr(err error) ErrorKind {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Stage
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		return KindDecode
	}
	return KindEncode
}
