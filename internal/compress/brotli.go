package compress

import (
	"bytes"

	"github.com/andybalholm/brotli"
)

type Brotli struct {
	limit int64
}

func NewBrotli() Brotli {
	return Brotli{limit: DefaultMaxDecodedSize}
}

func (b Brotli) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (b Brotli) Decode(data []byte) ([]byte, error) {
	return readAll(brotli.NewReader(bytes.NewReader(data)), b.limit)
}
