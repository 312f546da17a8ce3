// Package quality maps caller-supplied quality tokens to format selection
// expressions understood by the extraction engine.
package quality

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"tubefetch/internal/consts"
)

// Canonical quality names in the order they are enumerated in error hints.
var canonicalNames = []string{"best", "worst", "1080p", "720p", "480p", "360p", "240p", "144p"}

var reHeight = regexp.MustCompile(`^(\d+)p$`)

// UnsupportedError is returned when a token matches neither the canonical
// table, the height pattern, nor a known format id. Its message enumerates
// the remediation options.
type UnsupportedError struct {
	Token     string
	Available []string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("Requested quality '%s' is not available. Available options: %s",
		e.Token, strings.Join(e.Available, ", "))
}

// CanonicalNames returns a copy of the canonical quality names.
func CanonicalNames() []string {
	return slices.Clone(canonicalNames)
}

// heightExpr builds a selection that caps video height and always pairs it
// with the best audio stream, so muxed output has sound.
func heightExpr(height int) string {
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", height, height)
}

// ResolveStatic resolves a token without a capability list: canonical names
// and the <digits>p pattern. Callers use it to keep the capability fetch
// lazy, probing the engine only when this fails.
func ResolveStatic(token string) (string, bool) {
	switch token {
	case "best", "worst":
		return token, true
	}

	m := reHeight.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}

	height, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}

	return heightExpr(height), true
}

// Resolve maps a quality token to a format selection expression.
// knownFormatIDs are the format ids reported by the engine for the URL; a
// token matching one of them passes through unchanged.
func Resolve(token string, knownFormatIDs []string) (string, error) {
	if expr, ok := ResolveStatic(token); ok {
		return expr, nil
	}

	if slices.Contains(knownFormatIDs, token) {
		return token, nil
	}

	available := CanonicalNames()
	for _, id := range knownFormatIDs {
		if len(available) >= len(canonicalNames)+consts.MaxFormatIDHints {
			break
		}

		available = append(available, id)
	}

	return "", &UnsupportedError{Token: token, Available: available}
}

// Combines reports whether a selection expression may request separate
// video and audio streams that the engine has to merge.
func Combines(expr string) bool {
	return strings.Contains(expr, "+")
}
