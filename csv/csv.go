// Package csv writes messages as comma separated records.
package csv

import (
	"encoding/csv"
	"io"

	"golang.org/x/xerrors"
)

// Recorder is implemented by values that flatten into a list of fields.
type Recorder interface {
	Record() []string
}

// Encoder writes one row per record, each as wide as its record. There is
// no header row.
type Encoder struct {
	w *csv.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// Encode writes the record of v, which must implement Recorder, and flushes.
func (enc *Encoder) Encode(v interface{}) (err error) {
	defer func() {
		if r, _ := recover().(error); r != nil {
			err = xerrors.Errorf("recovered: %w", r)
		}
	}()

	if err = enc.w.Write(v.(Recorder).Record()); err != nil {
		return xerrors.Errorf("csv record: %w", err)
	}
	enc.w.Flush()

	return enc.w.Error()
}
