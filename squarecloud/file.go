package squarecloud

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is a payload for upload and commit requests.
type File struct {
	Name   string
	Reader io.Reader
}

// NewFile wraps in-memory data for upload.
func NewFile(name string, data []byte) *File {
	return &File{Name: name, Reader: bytes.NewReader(data)}
}

// OpenFile opens a file from disk for upload.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(path), Reader: f}, nil
}

// rewind resets the stream to the start so the full content is sent
// even if the caller already read it for validation.
func (f *File) rewind() error {
	if seeker, ok := f.Reader.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
	return nil
}
