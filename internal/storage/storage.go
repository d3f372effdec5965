// Package storage keeps die drawings and documents in an object store and
// turns stored keys into URLs for the console.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"dieworks-backend/internal/model"
)

// ObjectStore is the subset of an S3-style bucket the service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

// ObjectKey builds a collision-free key for a file uploaded to a die. The key
// holds the raw names; FileURL escapes them.
func ObjectKey(dieNumber, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return fmt.Sprintf("dies/%s/%s_%s", strings.ReplaceAll(dieNumber, "/", "_"), uuid.NewString(), base)
}

// KindOf classifies an uploaded file by its extension.
func KindOf(fileName string) string {
	if strings.EqualFold(path.Ext(fileName), ".dxf") {
		return model.FileKindDXF
	}
	return model.FileKindDocument
}

// Resolver maps object keys to the URLs served by the file server and the DXF viewer.
type Resolver struct {
	PublicBaseURL string
	DXFViewerURL  string
}

// FileURL returns the download URL of an object.
func (r Resolver) FileURL(objectKey string) string {
	if r.PublicBaseURL == "" {
		return ""
	}
	segments := strings.Split(strings.TrimLeft(objectKey, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(r.PublicBaseURL, "/") + "/" + strings.Join(segments, "/")
}

// ViewerURL returns the DXF viewer link for an object, passing the file URL
// in the viewer's "file" query parameter.
func (r Resolver) ViewerURL(objectKey string) string {
	fileURL := r.FileURL(objectKey)
	if r.DXFViewerURL == "" || fileURL == "" {
		return ""
	}
	u, err := url.Parse(r.DXFViewerURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("file", fileURL)
	u.RawQuery = q.Encode()
	return u.String()
}

// Decorate fills the URL fields of f.
func (r Resolver) Decorate(f *model.DieFile) {
	f.URL = r.FileURL(f.ObjectKey)
	if f.Kind == model.FileKindDXF {
		f.ViewerURL = r.ViewerURL(f.ObjectKey)
	}
}
