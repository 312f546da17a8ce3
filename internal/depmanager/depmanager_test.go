package depmanager

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"tubefetch/internal/config"
	"tubefetch/internal/errs"

	"github.com/ulikunitz/xz"
)

func makeTarXZ(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	xzw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}

	tw := tar.NewWriter(xzw)

	hdr := &tar.Header{
		Name:     name,
		Mode:     0o755,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("tar header: %v", err)
	}

	if _, err := tw.Write(content); err != nil {
		t.Fatalf("tar write: %v", err)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}

	if err := xzw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}

	return buf.Bytes()
}

func TestExtractTarXZ(t *testing.T) {
	content := []byte("#!/bin/sh\necho ffmpeg\n")
	archive := makeTarXZ(t, "ffmpeg-master-latest-linux64-gpl/bin/ffmpeg", content)

	dest := filepath.Join(t.TempDir(), "ffmpeg")

	if err := extractTarXZ(bytes.NewReader(archive), "bin/ffmpeg", dest); err != nil {
		t.Fatalf("extractTarXZ failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read extracted binary: %v", err)
	}

	if !bytes.Equal(got, content) {
		t.Errorf("extracted content mismatch")
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat extracted binary: %v", err)
	}

	if info.Mode()&0o111 == 0 {
		t.Error("extracted binary is not executable")
	}
}

func TestExtractTarXZMissingMember(t *testing.T) {
	archive := makeTarXZ(t, "README.txt", []byte("docs"))

	err := extractTarXZ(bytes.NewReader(archive), "bin/ffmpeg", filepath.Join(t.TempDir(), "ffmpeg"))
	if !errors.Is(err, errs.ErrBinaryNotFound) {
		t.Errorf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestExtractTarXZRejectsGarbage(t *testing.T) {
	err := extractTarXZ(bytes.NewReader([]byte("not an archive")), "bin/ffmpeg", filepath.Join(t.TempDir(), "ffmpeg"))
	if err == nil {
		t.Error("expected error for invalid archive")
	}
}

func TestEnsureSystemBinariesMissing(t *testing.T) {
	// An empty PATH makes the lookup fail deterministically.
	t.Setenv("PATH", t.TempDir())

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Deps: config.Deps{UseSystemBinaries: true},
	}

	m := New(log, cfg)

	err := m.Ensure(context.Background())
	if !errors.Is(err, errs.ErrBinaryNotFound) {
		t.Errorf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestPathUnresolved(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(log, &config.Config{})

	if got := m.Path(BinaryYTdlp); got != "" {
		t.Errorf("Path before Ensure = %q, want empty", got)
	}
}
