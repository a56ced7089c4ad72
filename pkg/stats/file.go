package stats

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
)

// File is one downloaded table payload. Content is kept base64 encoded so
// the whole Database serializes as plain JSON.
type File struct {
	URL           string
	Name          string
	ContentBase64 string
}

// NewFile wraps raw content already in memory.
func NewFile(name string, data []byte) *File {
	return &File{
		Name:          name,
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	}
}

// DownloadContent fetches URL and stores the payload. Name defaults to the
// last URL path element.
func (f *File) DownloadContent(ctx context.Context) error {
	data, err := Download(ctx, f.URL)
	if err != nil {
		return err
	}
	if f.Name == "" {
		f.Name = path.Base(f.URL)
	}
	f.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	return nil
}

// Content returns the decoded payload.
func (f *File) Content() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("decode content of %q: %w", f.Name, err)
	}
	return data, nil
}
