package compress

import (
	"bytes"
	"compress/gzip"
)

type GZip struct {
	level int
	limit int64
}

func NewGZip() GZip {
	return GZip{level: gzip.DefaultCompression, limit: DefaultMaxDecodedSize}
}

func (g GZip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}

	if _, err = w.Write(data); err != nil {
		return nil, err
	}

	if err = w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g GZip) Decode(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return readAll(gr, g.limit)
}
