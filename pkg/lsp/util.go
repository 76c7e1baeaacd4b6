package lsp

import (
	"bufio"
	"io"

	"go.uber.org/multierr"
)

// ReadWriteCloser joins a reader and a writer, usually stdin and stdout, into one stream.
type ReadWriteCloser struct {
	reader  *bufio.Reader
	writer  io.Writer
	closers []io.Closer
}

func NewReadWriteCloser(r io.ReadCloser, w io.WriteCloser) *ReadWriteCloser {
	return &ReadWriteCloser{
		reader:  bufio.NewReader(r),
		writer:  w,
		closers: []io.Closer{r, w},
	}
}

func (rwc *ReadWriteCloser) Read(p []byte) (int, error) {
	return rwc.reader.Read(p)
}

func (rwc *ReadWriteCloser) Write(p []byte) (int, error) {
	return rwc.writer.Write(p)
}

// Close closes both ends and reports every failure.
func (rwc *ReadWriteCloser) Close() error {
	var err error
	for _, c := range rwc.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
