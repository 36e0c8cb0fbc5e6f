package utils

import (
	"io"
	"sync"
)

type flushCapableWriter interface {
	Flush() error
}

type syncCapableWriter interface {
	Sync() error
}

// FlushingWriter serializes writes and flushes the underlying writer after
// each one, so progress lines and failure summaries from concurrent
// repository transfers appear immediately and never interleave mid-line.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewFlushingWriter wraps the provided writer. Writers exposing Flush are
// flushed after every write; file-backed writers exposing Sync are synced.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer under the mutex and flushes or
// syncs it when the writer supports either operation.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	switch typedWriter := flushingWriter.writer.(type) {
	case flushCapableWriter:
		if flushError := typedWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	case syncCapableWriter:
		_ = typedWriter.Sync()
	}

	return bytesWritten, nil
}
