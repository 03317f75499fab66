// Package trace records per-tick troop frames as zstd-compressed JSON lines
// so a headless run can be inspected after the fact.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Troop is one troop's state at the end of a tick.
type Troop struct {
	Index     int     `json:"i"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	State     string  `json:"state"`
	Target    string  `json:"target,omitempty"` // "building" or "wall"
	TargetX   float64 `json:"tx,omitempty"`
	TargetY   float64 `json:"ty,omitempty"`
	Waypoints int     `json:"wp"`
}

// Frame is everything recorded for one tick.
type Frame struct {
	Tick       int     `json:"tick"`
	Structures int     `json:"structures"`
	Troops     []Troop `json:"troops"`
}

// Writer appends frames to a zstd stream, one JSON object per line.
type Writer struct {
	mu  sync.Mutex
	f   io.Closer // owned file, nil when writing to a caller's stream
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter compresses frames into dst. Closing the Writer does not close dst.
func NewWriter(dst io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Create opens path for writing, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.f = f
	return w, nil
}

// Write appends one frame.
func (w *Writer) Write(fr Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return errors.New("trace: write after close")
	}
	b, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and finishes the zstd stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	err := w.w.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	return err
}

// Reader decodes frames written by Writer.
type Reader struct {
	dec *zstd.Decoder
	sc  *bufio.Scanner
	f   io.Closer
}

// NewReader decompresses frames from src.
func NewReader(src io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Reader{dec: dec, sc: sc}, nil
}

// Open reads a trace file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.f = f
	return r, nil
}

// Next returns the next frame, or io.EOF at the end of the stream.
func (r *Reader) Next() (Frame, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return Frame{}, err
		}
		return Frame{}, io.EOF
	}
	var fr Frame
	if err := json.Unmarshal(r.sc.Bytes(), &fr); err != nil {
		return Frame{}, err
	}
	return fr, nil
}

// ReadAll drains the remaining frames.
func (r *Reader) ReadAll() ([]Frame, error) {
	var out []Frame
	for {
		fr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, fr)
	}
}

// Close releases the decoder and any file opened by Open.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}
