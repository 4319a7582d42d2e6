package csv

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"golang.org/x/xerrors"
)

type segment struct{}

func (segment) Record() []string {
	return []string{"64", "12", "a,b"}
}

type telemetry struct{}

func (telemetry) Record() []string {
	return []string{"70", "3"}
}

// Rows keep their own field counts and no header is written.
func TestMixedRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)

	for _, v := range []Recorder{segment{}, telemetry{}, segment{}} {
		if err := enc.Encode(v); err != nil {
			t.Fatalf("%+v\n", err)
		}
	}

	want := "64,12,\"a,b\"\n70,3\n64,12,\"a,b\"\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNotRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)

	for _, v := range []interface{}{nil, struct{}{}} {
		err := enc.Encode(v)

		var runtimeErr runtime.Error
		if !xerrors.As(err, &runtimeErr) {
			t.Fatalf("%v: expected runtime error, got %+v", v, err)
		}
	}

	// Nothing reaches the stream.
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

type failWriter struct{}

var errWrite = errors.New("disk full")

func (failWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestWriteError(t *testing.T) {
	err := NewEncoder(failWriter{}).Encode(segment{})
	if !errors.Is(err, errWrite) {
		t.Fatalf("expected %v, got %+v", errWrite, err)
	}
}
