// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package csvout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/wingedpig/ipowners/pkg/model"
)

// Writer owns the output stream. A single goroutine performs all writes;
// callers hand it records through Write.
type Writer struct {
	out     *bufio.Writer
	closer  io.Closer
	ordered bool

	rows chan model.OwnershipRecord
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	// Owned by the writer goroutine until done is closed
	err     error
	written int
	pending map[int]model.OwnershipRecord
	next    int
}

// Create opens path for writing, truncating it, and starts a writer on it
func Create(path string, ordered bool) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	w, err := newWriter(f, f, ordered)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter starts a writer on out. The header is written immediately.
// In ordered mode rows come out by Index regardless of the order they arrive in.
func NewWriter(out io.Writer, ordered bool) (*Writer, error) {
	return newWriter(out, nil, ordered)
}

func newWriter(out io.Writer, closer io.Closer, ordered bool) (*Writer, error) {
	w := &Writer{
		out:     bufio.NewWriter(out),
		closer:  closer,
		ordered: ordered,
		rows:    make(chan model.OwnershipRecord, 64),
		done:    make(chan struct{}),
		pending: make(map[int]model.OwnershipRecord),
	}

	if _, err := w.out.WriteString(Header + "\n"); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.out.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	go w.run()
	return w, nil
}

// Write hands a record to the writer goroutine
func (w *Writer) Write(ctx context.Context, rec model.OwnershipRecord) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return model.ErrWriterClosed
	}

	select {
	case w.rows <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued records, flushes, and closes the underlying file.
// It returns the first error seen while writing.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return model.ErrWriterClosed
	}
	w.closed = true
	close(w.rows)
	w.mu.Unlock()

	<-w.done

	err := w.err
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}
	return err
}

// Written returns the number of rows written. Valid after Close.
func (w *Writer) Written() int {
	<-w.done
	return w.written
}

func (w *Writer) run() {
	defer close(w.done)

	for rec := range w.rows {
		if w.ordered {
			w.pending[rec.Index] = rec
			for {
				next, ok := w.pending[w.next]
				if !ok {
					break
				}
				delete(w.pending, w.next)
				w.next++
				w.emit(next)
			}
		} else {
			w.emit(rec)
		}

		// Flush whenever the queue runs dry so completed rows reach disk
		if len(w.rows) == 0 {
			w.flush()
		}
	}

	// Gaps in the index sequence leave rows behind; write them in order
	if len(w.pending) > 0 {
		indexes := make([]int, 0, len(w.pending))
		for i := range w.pending {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		for _, i := range indexes {
			w.emit(w.pending[i])
		}
		w.pending = nil
	}
	w.flush()
}

func (w *Writer) emit(rec model.OwnershipRecord) {
	if w.err != nil {
		return
	}
	if _, err := w.out.WriteString(EncodeRow(rec)); err != nil {
		w.err = fmt.Errorf("failed to write row %d: %w", rec.Index, err)
		return
	}
	w.written++
}

func (w *Writer) flush() {
	if w.err != nil {
		return
	}
	if err := w.out.Flush(); err != nil {
		w.err = fmt.Errorf("failed to flush output: %w", err)
	}
}
