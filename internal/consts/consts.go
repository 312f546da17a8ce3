// Package consts defines application-wide constants.
package consts

// HTTP response messages.
const (
	// RespLiveness is the plain-text body served on the root route.
	RespLiveness = "YouTube Video Downloader API"
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespURLRequired is returned when the url field is missing.
	RespURLRequired = "URL is required"
)

// Container formats.
const (
	// FormatMP4 is the default target container.
	FormatMP4 = "mp4"
	// FormatMP3 triggers the audio-extraction postprocessing directive.
	FormatMP3 = "mp3"
)

// Audio extraction settings passed to the engine for mp3 requests.
const (
	// AudioCodecMP3 is the target codec for audio extraction.
	AudioCodecMP3 = "mp3"
	// AudioQuality192K is the target audio quality tier.
	AudioQuality192K = "192K"
)

// CodecNone is how the engine reports an absent video or audio codec.
const CodecNone = "none"

// MaxFormatIDHints caps the number of raw format ids enumerated in the
// unsupported-quality error message.
const MaxFormatIDHints = 10

// OutputTemplate is the engine output filename template scoped to a workspace.
// The engine controls the final name and extension via video metadata.
const OutputTemplate = "%(title)s.%(ext)s"
