// Package request defines the request bodies of the public API.
package request

import (
	"tubefetch/internal/consts"
	"tubefetch/internal/errs"
)

// Download is the POST /download body.
type Download struct {
	URL     string `json:"url"`
	Quality string `json:"quality"` // canonical name, <digits>p, or raw format id
	Format  string `json:"format"`  // target container: mp4 (default) or mp3
}

// SetDefaults applies the documented defaults for omitted fields.
func (d *Download) SetDefaults() {
	if d.Quality == "" {
		d.Quality = "best"
	}

	if d.Format == "" {
		d.Format = consts.FormatMP4
	}
}

// Validate checks required fields.
func (d *Download) Validate() error {
	if d.URL == "" {
		return errs.ErrURLRequired
	}

	return nil
}

// Formats is the POST /formats body.
type Formats struct {
	URL string `json:"url"`
}

// Validate checks required fields.
func (f *Formats) Validate() error {
	if f.URL == "" {
		return errs.ErrURLRequired
	}

	return nil
}
