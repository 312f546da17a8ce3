// Package response writes the wire formats of the public API.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"tubefetch/internal/entity"
)

// errorBody is the error payload shape: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as application/json with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}

// Error writes {"error": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Text writes a plain-text body.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Attachment streams the artifact as a file download.
func Attachment(w http.ResponseWriter, r *http.Request, artifact *entity.Artifact) error {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))

	http.ServeContent(w, r, artifact.Filename, info.ModTime(), f)

	return nil
}
