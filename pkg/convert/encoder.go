package convert

// Encoder converts raw image bytes to WebP bytes at a given quality. The
// pipeline treats it as an opaque, potentially slow, potentially failing
// collaborator; concrete implementations live outside this package.
//
// Implementations should return ErrUnsupportedFormat for unrecognized input
// and wrap other failures in *CodecError so the pool can classify them.
type Encoder interface {
	Encode(src []byte, quality int) ([]byte, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(src []byte, quality int) ([]byte, error)

// Encode calls f(src, quality).
func (f EncoderFunc) Encode(src []byte, quality int) ([]byte, error) {
	return f(src, quality)
}
