package compress

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxDecodedSize bounds the size of one decompressed payload.
const DefaultMaxDecodedSize = 512 << 20

var (
	ErrUnknownCompression = errors.New("unknown compression")
	ErrTooLarge           = errors.New("decompressed payload too large")
)

// Compress encodes and decodes payload bytes exchanged with remote boxes.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// ByName returns the compression registered under name.
func ByName(name string) (Compress, error) {
	switch name {
	case "", "none", "nop":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "lz4":
		return NewLZ4(), nil
	case "brotli":
		return NewBrotli(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, name)
	}
}

// Nop passes payloads through unchanged.
type Nop struct {
}

func NewNop() Nop {
	return Nop{}
}

func (n Nop) Encode(data []byte) ([]byte, error) {
	return data, nil
}

func (n Nop) Decode(data []byte) ([]byte, error) {
	return data, nil
}

// readAll reads r to the end, failing once more than limit bytes come out.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxDecodedSize
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
