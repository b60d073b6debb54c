// Package json provides goccy/go-json backed helpers for streaming JSON
// arrays and JSON lines in both directions.
package json

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 {
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// StreamingEncoder writes values one at a time either as the elements of a
// single JSON array or as newline-delimited JSON. Nothing but the current
// value is buffered.
type StreamingEncoder struct {
	writer  io.Writer
	isArray bool
	count   int
	closed  bool
}

// NewStreamingEncoder creates a streaming encoder. In array mode the opening
// bracket is written immediately.
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	se := &StreamingEncoder{writer: w, isArray: isArray}
	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}
	return se, nil
}

// Encode writes a single value.
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.closed {
		return fmt.Errorf("encode on closed streaming encoder")
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if se.isArray {
		if se.count > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}

	data, err := gojson.MarshalNoEscape(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	if !se.isArray {
		buf.WriteByte('\n')
	}

	if _, err := se.writer.Write(buf.Bytes()); err != nil {
		return err
	}
	se.count++
	return nil
}

// Count returns the number of values encoded so far.
func (se *StreamingEncoder) Count() int { return se.count }

// Close writes the closing bracket in array mode. It does not close the
// underlying writer.
func (se *StreamingEncoder) Close() error {
	if se.closed {
		return nil
	}
	se.closed = true
	if !se.isArray {
		return nil
	}
	closing := []byte{']'}
	if se.count > 0 {
		closing = []byte{'\n', ']'}
	}
	_, err := se.writer.Write(closing)
	return err
}

// ArrayDecoder reads the elements of a top-level JSON array one at a time.
type ArrayDecoder struct {
	dec     *gojson.Decoder
	started bool
	done    bool
}

// NewArrayDecoder creates a decoder over r.
func NewArrayDecoder(r io.Reader) *ArrayDecoder {
	return &ArrayDecoder{dec: gojson.NewDecoder(bufio.NewReader(r))}
}

// Next decodes the next element into v. It returns false with a nil error
// once the closing bracket has been consumed.
func (d *ArrayDecoder) Next(v interface{}) (bool, error) {
	if d.done {
		return false, nil
	}
	if !d.started {
		tok, err := d.dec.Token()
		if err != nil {
			return false, fmt.Errorf("failed to read array start: %w", err)
		}
		if delim, ok := tok.(gojson.Delim); !ok || delim != '[' {
			return false, fmt.Errorf("expected JSON array, got %v", tok)
		}
		d.started = true
	}

	if !d.dec.More() {
		if _, err := d.dec.Token(); err != nil {
			return false, fmt.Errorf("failed to read array end: %w", err)
		}
		d.done = true
		return false, nil
	}

	if err := d.dec.Decode(v); err != nil {
		return false, err
	}
	return true, nil
}
