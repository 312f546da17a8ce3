// Package entity defines the core entities used in the application.
package entity

import "log/slog"

// CapabilityEntry is one encoding reported by the extraction engine for a URL.
// JSON field names follow the public API contract.
type CapabilityEntry struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	// Resolution is the engine's human-readable note when present,
	// otherwise the numeric height. The type varies on the wire.
	Resolution any    `json:"resolution"`
	Filesize   *int64 `json:"filesize"`
	Format     string `json:"format"`
	Vcodec     string `json:"vcodec"`
	Acodec     string `json:"acodec"`
}

// LogValue implements slog.LogValuer for structured logging.
func (c CapabilityEntry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("format_id", c.FormatID),
		slog.String("ext", c.Ext),
		slog.String("vcodec", c.Vcodec),
		slog.String("acodec", c.Acodec),
	)
}

// Artifact is the file selected as the result of a download request.
// Filename and extension come from the engine and video metadata, never
// from the caller.
type Artifact struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// LogValue implements slog.LogValuer for structured logging.
func (a Artifact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", a.Path),
		slog.String("filename", a.Filename),
		slog.String("content_type", a.ContentType),
		slog.Int64("size", a.Size),
	)
}
