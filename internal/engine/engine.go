// Package engine defines the extraction-engine interface and its yt-dlp
// implementation.
package engine

import (
	"context"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
)

// FetchOptions configure a single engine download invocation.
type FetchOptions struct {
	// Selection is the format selection expression.
	Selection string
	// OutputTemplate is the output path template scoped to a workspace.
	OutputTemplate string
	// MergeContainer, when non-empty, asks the engine to mux combined
	// video+audio selections into this container.
	MergeContainer string
	// ExtractAudio enables the audio-extraction postprocessing directive.
	ExtractAudio bool
	// AudioFormat is the target codec for audio extraction.
	AudioFormat string
	// AudioQuality is the target quality tier for audio extraction.
	AudioQuality string
}

// Engine is the external media extraction and download engine.
type Engine interface {
	// Probe reports the available encodings for a URL without downloading
	// anything. Entries carrying neither video nor audio are filtered out.
	Probe(ctx context.Context, url string) ([]entity.CapabilityEntry, error)

	// Fetch downloads the selected encoding into the workspace named by
	// opts.OutputTemplate. It blocks until the engine finishes; the final
	// file path is not returned and must be discovered by the caller.
	Fetch(ctx context.Context, url string, opts FetchOptions) error
}

// FilterCapabilities drops entries that report both codecs absent: they
// carry neither video nor audio.
func FilterCapabilities(entries []entity.CapabilityEntry) []entity.CapabilityEntry {
	filtered := make([]entity.CapabilityEntry, 0, len(entries))

	for _, e := range entries {
		if e.Vcodec == consts.CodecNone && e.Acodec == consts.CodecNone {
			continue
		}

		filtered = append(filtered, e)
	}

	return filtered
}

// FormatIDs projects capability entries to their format identifiers.
func FormatIDs(entries []entity.CapabilityEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.FormatID)
	}

	return ids
}
