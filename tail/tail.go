// Package tail follows a local log file and emits each line appended
// to it after tailing starts.  The file is polled at a fixed interval.
package tail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"rconsole/internal/metrics"
	"rconsole/util"
)

// DefaultInterval is the poll period when Options.Interval is zero.
const DefaultInterval = 100 * time.Millisecond

// readChunk bounds a single read from the file.
const readChunk = 32 * 1024

// Options configure a Tailer.
type Options struct {
	// Interval between polls once the file is drained.
	Interval time.Duration
	// Emit receives each complete line without its terminator.  It is
	// called from the tail goroutine.
	Emit func(line string)
	// OnError, if set, is called once when tailing stops because the
	// file can no longer be read.
	OnError func(err error)

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Tailer follows one file.  Create it with [Start] and always release
// it with [Tailer.Stop].
type Tailer struct {
	path    string
	opts    Options
	logger  *util.Logger
	file    *os.File
	info    os.FileInfo
	offset  int64
	partial []byte

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	err      error // written before done is closed
}

// Start opens path, seeks to its end and begins polling for new lines.
// A missing file yields an error matching [fs.ErrNotExist].  The
// tailer stops when ctx is cancelled or Stop is called.
func Start(ctx context.Context, path string, opts Options) (*Tailer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tail: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tail: %w", err)
	}
	off, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tail: seek %s: %w", path, err)
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Tailer{
		path:   path,
		opts:   opts,
		logger: logger,
		file:   f,
		info:   info,
		offset: off,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger.Verbose("tailing %s from offset %d", path, off)

	go t.run(ctx)
	return t, nil
}

// Path returns the file being followed.
func (t *Tailer) Path() string { return t.path }

// Stop cancels the poll loop and waits for it to exit.  No Emit call
// happens after Stop returns.  Stop is idempotent.
func (t *Tailer) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed when the poll loop has exited.
func (t *Tailer) Done() <-chan struct{} { return t.done }

// Err returns the error that ended tailing, or nil if the tailer is
// still running or was stopped normally.
func (t *Tailer) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

func (t *Tailer) run(ctx context.Context) {
	defer close(t.done)
	defer func() { t.file.Close() }()

	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		if err := t.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.err = err
			t.logger.Verbose("tail stopped: %v", err)
			if t.opts.OnError != nil {
				t.opts.OnError(err)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll drains whatever has been appended since the last call.
func (t *Tailer) poll(ctx context.Context) error {
	info, err := t.file.Stat()
	if err != nil {
		return fmt.Errorf("%s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		t.logger.Verbose("%s truncated, reading from start", t.path)
		if err := t.rewind(); err != nil {
			return err
		}
	}

	// The open handle still reads a removed or renamed file, so drain
	// it before looking at the path.
	if err := t.drain(ctx); err != nil {
		return err
	}

	cur, err := os.Stat(t.path)
	if err != nil {
		return fmt.Errorf("%s: %w", t.path, err)
	}
	// The name now points at a different file: the old one was rotated
	// away.  Follow the new one from the beginning.
	if !os.SameFile(cur, t.info) {
		return t.reopen(ctx)
	}
	return nil
}

func (t *Tailer) drain(ctx context.Context) error {
	buf := make([]byte, readChunk)
	for ctx.Err() == nil {
		n, err := t.file.Read(buf)
		if n > 0 {
			t.offset += int64(n)
			t.consume(ctx, buf[:n])
		}
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", t.path, err)
		}
	}
	return nil
}

// consume splits data into lines, holding back an unterminated tail
// until the rest of it is written.
func (t *Tailer) consume(ctx context.Context, data []byte) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			t.partial = append(t.partial, data...)
			return
		}
		line := data[:i]
		if len(t.partial) > 0 {
			line = append(t.partial, line...)
			t.partial = t.partial[:0]
		}
		data = data[i+1:]
		if ctx.Err() != nil {
			return
		}
		t.emit(strings.TrimRight(string(line), "\r"))
	}
}

func (t *Tailer) emit(line string) {
	t.opts.Metrics.TailLine()
	if t.opts.Emit != nil {
		t.opts.Emit(line)
	}
}

func (t *Tailer) rewind() error {
	if _, err := t.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", t.path, err)
	}
	t.offset = 0
	t.partial = t.partial[:0]
	return nil
}

func (t *Tailer) reopen(ctx context.Context) error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("reopen: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("reopen: %w", err)
	}
	t.logger.Verbose("%s was replaced, following the new file", t.path)

	t.file.Close()
	t.file, t.info = f, info
	t.offset = 0
	t.partial = t.partial[:0]
	return t.drain(ctx)
}
