package model

import "strings"

// File is an uploaded file, used as user avatar.
type File struct {
	ID   int64  `json:"id" db:"id"`
	Path string `json:"path" db:"path"`
	URL  string `json:"url" db:"-"`
}

// WithURL fills URL from the public files base URL.
func (f *File) WithURL(baseURL string) *File {
	if f == nil {
		return nil
	}
	f.URL = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(f.Path, "/")
	return f
}
