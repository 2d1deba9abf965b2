package compress

import (
	"bytes"

	"github.com/pierrec/lz4/v4"
)

type LZ4 struct {
	limit int64
}

func NewLZ4() LZ4 {
	return LZ4{limit: DefaultMaxDecodedSize}
}

func (l LZ4) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (l LZ4) Decode(data []byte) ([]byte, error) {
	return readAll(lz4.NewReader(bytes.NewReader(data)), l.limit)
}
