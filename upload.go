package modelapi

import (
	"errors"
	"io"
	"mime/multipart"
)

// FileUpload is a model field type holding one uploaded file of a
// multipart/form-data request. Use []FileUpload for repeated keys.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Header      *multipart.FileHeader
}

// Open returns a reader for the uploaded file contents.
func (f *FileUpload) Open() (io.ReadCloser, error) {
	if f.Header == nil {
		return nil, errors.New("no file header")
	}
	return f.Header.Open()
}

// ReadAll reads the whole uploaded file.
func (f *FileUpload) ReadAll() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.ReadAll(rc)
}

func newFileUpload(h *multipart.FileHeader) FileUpload {
	return FileUpload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Header:      h,
	}
}

// fileValue converts the files sent under one form key into the value
// merged into the request arguments: a single header or a slice of them.
func fileValue(headers []*multipart.FileHeader) any {
	if len(headers) == 1 {
		return headers[0]
	}
	return headers
}
