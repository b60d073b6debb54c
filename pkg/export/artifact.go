package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

const writeBufferSize = 256 * 1024

// artifact is an export file under construction. Data goes to a hidden temp
// file in the destination directory; the final path only ever holds a
// completely written artifact.
type artifact struct {
	final   string
	tmp     *os.File
	buf     *bufio.Writer
	counter *countingWriter
	done    bool
}

func createArtifact(dir, name string) (*artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to create export directory").
			WithDetail("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to create export file").
			WithDetail("dir", dir)
	}

	counter := &countingWriter{w: tmp}
	return &artifact{
		final:   filepath.Join(dir, name),
		tmp:     tmp,
		buf:     bufio.NewWriterSize(counter, writeBufferSize),
		counter: counter,
	}, nil
}

// Writer returns the buffered writer for the artifact body.
func (a *artifact) Writer() io.Writer { return a.buf }

// Bytes returns the number of bytes flushed to disk so far.
func (a *artifact) Bytes() int64 { return a.counter.n }

// commit flushes, syncs and renames the temp file onto the final path.
func (a *artifact) commit() error {
	if a.done {
		return nil
	}
	if err := a.buf.Flush(); err != nil {
		a.abort()
		return tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to flush export file")
	}
	if err := a.tmp.Sync(); err != nil {
		a.abort()
		return tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to sync export file")
	}
	if err := a.tmp.Close(); err != nil {
		a.done = true
		_ = os.Remove(a.tmp.Name())
		return tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to close export file")
	}
	if err := os.Rename(a.tmp.Name(), a.final); err != nil {
		a.done = true
		_ = os.Remove(a.tmp.Name())
		return tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to move export into place").
			WithDetail("path", a.final)
	}
	a.done = true
	return nil
}

// abort discards the temp file. It is safe to call after commit.
func (a *artifact) abort() {
	if a.done {
		return
	}
	a.done = true
	_ = a.tmp.Close()
	_ = os.Remove(a.tmp.Name())
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
