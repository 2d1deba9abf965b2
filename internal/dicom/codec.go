package dicom

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrParse is returned when payload bytes cannot be read as a dataset.
	ErrParse = errors.New("dataset parse error")
)

// Codec converts between datasets and the bytes stored in payload files and
// exchanged between boxes.
type Codec interface {
	Encode(ds *Dataset) ([]byte, error)
	Decode(data []byte) (*Dataset, error)
}

type JSONCodec struct {
}

func NewJSONCodec() JSONCodec {
	return JSONCodec{}
}

func (c JSONCodec) Encode(ds *Dataset) ([]byte, error) {
	if ds == nil {
		return nil, errors.New("nil dataset")
	}
	return json.Marshal(ds)
}

func (c JSONCodec) Decode(data []byte) (*Dataset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrParse)
	}

	ds := NewDataset()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(ds.Attributes) == 0 {
		return nil, fmt.Errorf("%w: no attributes", ErrParse)
	}

	return ds, nil
}
