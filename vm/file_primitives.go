package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// FileHandle: buffered file opened by the open() builtin
// ---------------------------------------------------------------------------

// FileHandle wraps an open file. Writes are buffered until flush or close.
type FileHandle struct {
	ID   string
	Path string
	Mode string // "r", "w" or "a"

	file   *os.File
	reader *bufio.Reader
	writer *bufio.Writer
	closed bool
}

// OpenFile opens path in mode "r", "w" (truncate) or "a" (append).
func OpenFile(path, mode string, bufSize int) (*FileHandle, error) {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return nil, fmt.Errorf("invalid mode %q", mode)
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	h := &FileHandle{ID: uuid.NewString(), Path: path, Mode: mode, file: f}
	if mode == "r" {
		h.reader = bufio.NewReaderSize(f, bufSize)
	} else {
		h.writer = bufio.NewWriterSize(f, bufSize)
	}
	return h, nil
}

// IsOpen returns true until the handle is closed.
func (h *FileHandle) IsOpen() bool { return !h.closed }

// Close flushes pending writes and releases the file. Closing twice is a
// no-op.
func (h *FileHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	var flushErr error
	if h.writer != nil {
		flushErr = h.writer.Flush()
	}
	return errors.Join(flushErr, h.file.Close())
}

func (h *FileHandle) writable() error {
	if h.closed {
		return Errorf(IOError, "%s: file is closed", h.Path)
	}
	if h.writer == nil {
		return Errorf(IOError, "%s: file not open for writing", h.Path)
	}
	return nil
}

func (h *FileHandle) readable() error {
	if h.closed {
		return Errorf(IOError, "%s: file is closed", h.Path)
	}
	if h.reader == nil {
		return Errorf(IOError, "%s: file not open for reading", h.Path)
	}
	return nil
}

func ioError(path string, err error) error {
	return Errorf(IOError, "%s: %s", path, err)
}

// ---------------------------------------------------------------------------
// File Intrinsics
// ---------------------------------------------------------------------------

func init() {
	registerIntrinsics(KindFile,
		&Intrinsic{Name: "write", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			h := recv.File()
			if err := h.writable(); err != nil {
				return Null, err
			}
			if _, err := h.writer.WriteString(args[0].String()); err != nil {
				return Null, ioError(h.Path, err)
			}
			return Null, nil
		}},

		&Intrinsic{Name: "writeLine", Min: 1, Max: 1, Fn: func(_ *Interpreter, recv Value, args []Value) (Value, error) {
			h := recv.File()
			if err := h.writable(); err != nil {
				return Null, err
			}
			if _, err := h.writer.WriteString(args[0].String() + "\n"); err != nil {
				return Null, ioError(h.Path, err)
			}
			return Null, nil
		}},

		// readLine - next line without its terminator, null at end of file
		&Intrinsic{Name: "readLine", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			h := recv.File()
			if err := h.readable(); err != nil {
				return Null, err
			}
			line, err := h.reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Null, ioError(h.Path, err)
			}
			if line == "" && errors.Is(err, io.EOF) {
				return Null, nil
			}
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			return FromString(line), nil
		}},

		// readAll - the rest of the file
		&Intrinsic{Name: "readAll", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			h := recv.File()
			if err := h.readable(); err != nil {
				return Null, err
			}
			data, err := io.ReadAll(h.reader)
			if err != nil {
				return Null, ioError(h.Path, err)
			}
			return FromString(string(data)), nil
		}},

		&Intrinsic{Name: "flush", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			h := recv.File()
			if err := h.writable(); err != nil {
				return Null, err
			}
			if err := h.writer.Flush(); err != nil {
				return Null, ioError(h.Path, err)
			}
			return Null, nil
		}},

		&Intrinsic{Name: "close", Fn: func(it *Interpreter, recv Value, _ []Value) (Value, error) {
			h := recv.File()
			delete(it.files, h.ID)
			if err := h.Close(); err != nil {
				return Null, ioError(h.Path, err)
			}
			return Null, nil
		}},

		&Intrinsic{Name: "isOpen", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromBool(recv.File().IsOpen()), nil
		}},

		&Intrinsic{Name: "path", Fn: func(_ *Interpreter, recv Value, _ []Value) (Value, error) {
			return FromString(recv.File().Path), nil
		}},
	)
}
