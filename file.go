package hugemap

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hupe1980/hugemap/internal/resolver"
)

// File is a file mapped through the acceleration pipeline. Files large
// enough to qualify are held in huge-page-backed memory; everything else is
// an ordinary read-only file mapping.
type File struct {
	data []byte
	f    *os.File
	m    *Mapper
}

// Open maps the file at path read-only through m.
func (m *Mapper) Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		f.Close()
		return nil, errors.New("hugemap: file size is negative")
	}
	if size == 0 {
		return &File{f: f, m: m}, nil
	}

	data, err := m.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{data: data, f: f, m: m}, nil
}

// Open maps the file at path read-only through the process-wide Mapper,
// or as a plain file mapping when hugemap is not initialized.
func Open(path string) (*File, error) {
	if m := defaultMapper.Load(); m != nil {
		return m.Open(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		return &File{f: f}, nil
	}

	data, err := resolver.Get().Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{data: data, f: f}, nil
}

// Bytes returns the mapped contents. The slice is valid until Close.
func (fl *File) Bytes() []byte {
	return fl.data
}

// Size returns the mapping length in bytes.
func (fl *File) Size() int {
	return len(fl.data)
}

// ReadAt implements io.ReaderAt over the mapped contents.
func (fl *File) ReadAt(p []byte, off int64) (n int, err error) {
	if fl.data == nil {
		return 0, io.EOF
	}
	if off < 0 || off >= int64(len(fl.data)) {
		return 0, io.EOF
	}
	n = copy(p, fl.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close releases the mapping and closes the underlying file.
func (fl *File) Close() error {
	if fl == nil {
		return nil
	}
	var err error
	if fl.data != nil {
		if fl.m != nil {
			err = fl.m.Munmap(fl.data)
		} else {
			err = resolver.Get().Munmap(fl.data)
		}
		fl.data = nil
	}
	if fl.f != nil {
		if closeErr := fl.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		fl.f = nil
	}
	return err
}
