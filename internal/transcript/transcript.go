// Package transcript records the message stream of a session as JSON lines
// and plays it back.
package transcript

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/protocol"
)

// Direction tells inbound frames from outbound requests.
type Direction string

const (
	// Inbound is a frame received from the server.
	Inbound Direction = "in"
	// Outbound is a request sent to the server.
	Outbound Direction = "out"
)

// Entry is one recorded message.
type Entry struct {
	OffsetMS int64     `json:"t_ms"`
	Dir      Direction `json:"dir"`
	Text     string    `json:"text"`
	Payload  []byte    `json:"payload,omitempty"`
}

// Offset returns the time since the recording started.
func (e Entry) Offset() time.Duration {
	return time.Duration(e.OffsetMS) * time.Millisecond
}

// Frame rebuilds the raw frame. Tile frames get their newline separator back.
func (e Entry) Frame() []byte {
	if e.Payload == nil {
		return []byte(e.Text)
	}
	frame := make([]byte, 0, len(e.Text)+1+len(e.Payload))
	frame = append(frame, e.Text...)
	frame = append(frame, '\n')
	return append(frame, e.Payload...)
}

// Recorder appends entries to a writer. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	start  time.Time
	now    func() time.Time
	log    pslog.Logger
	count  int
}

// NewRecorder writes entries to w. now may be nil.
func NewRecorder(w io.Writer, now func() time.Time, logger pslog.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	r := &Recorder{w: bufio.NewWriter(w), now: now, log: logger}
	r.start = now()
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Create opens path for recording, creating parent directories.
func Create(path string, logger pslog.Logger) (*Recorder, error) {
	if path == "" {
		return nil, errors.New("transcript path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("transcript", path)
	}
	return NewRecorder(f, nil, logger), nil
}

// Frame records an inbound frame.
func (r *Recorder) Frame(frame []byte) error {
	entry := Entry{Dir: Inbound}
	if bytes.HasPrefix(frame, []byte("tile:")) {
		if idx := bytes.IndexByte(frame, '\n'); idx != -1 {
			entry.Text = string(frame[:idx])
			entry.Payload = append([]byte{}, frame[idx+1:]...)
			return r.write(entry)
		}
	}
	entry.Text = string(frame)
	return r.write(entry)
}

// Request records an outbound request.
func (r *Recorder) Request(req protocol.Request) error {
	return r.write(Entry{Dir: Outbound, Text: req.Text})
}

func (r *Recorder) write(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.OffsetMS = r.now().Sub(r.start).Milliseconds()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return err
	}
	r.count++
	return nil
}

// Count returns the number of recorded entries.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Flush writes buffered entries.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}

// Close flushes and closes the underlying writer when it is closable.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	r.log.Debug("transcript closed", "entries", r.Count())
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Sender is the outbound half the recorder can tap.
type Sender interface {
	Send(ctx context.Context, req protocol.Request) error
}

// RecordingSender records every request before forwarding it.
type RecordingSender struct {
	Next     Sender
	Recorder *Recorder
}

// Send implements Sender.
func (s RecordingSender) Send(ctx context.Context, req protocol.Request) error {
	if err := s.Recorder.Request(req); err != nil {
		s.Recorder.log.Warn("transcript request not recorded", "err", err)
	}
	return s.Next.Send(ctx, req)
}

// DecodeError reports a line that is not a valid entry.
type DecodeError struct {
	LineNo int
	Line   []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transcript line %d: %v", e.LineNo, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reader yields entries in recorded order.
type Reader struct {
	reader *bufio.Reader
	lineNo int
}

// NewReader reads entries from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next entry or io.EOF.
func (r *Reader) Next(ctx context.Context) (Entry, error) {
	for {
		if ctx.Err() != nil {
			return Entry{}, ctx.Err()
		}
		line, err := r.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return Entry{}, err
		}
		r.lineNo++
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return Entry{}, err
			}
			continue
		}
		var entry Entry
		if decodeErr := json.Unmarshal(line, &entry); decodeErr != nil {
			return Entry{}, &DecodeError{LineNo: r.lineNo, Line: append([]byte(nil), line...), Err: decodeErr}
		}
		if entry.Dir != Inbound && entry.Dir != Outbound {
			return Entry{}, &DecodeError{LineNo: r.lineNo, Line: append([]byte(nil), line...), Err: fmt.Errorf("unknown direction %q", entry.Dir)}
		}
		return entry, nil
	}
}

// ReadFile loads every entry of a transcript file.
func ReadFile(ctx context.Context, path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reader := NewReader(f)
	var out []Entry
	for {
		entry, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
}
