package slicer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// WriteArchive reconstructs the slice's files and writes them to w as a
// zip archive, one entry per file. It returns the number of entries
// written. Files that cannot be reconstructed are left out. A write error
// on w aborts the archive.
func (r *Reconstructor) WriteArchive(ctx context.Context, s *Slice, w io.Writer) (int, error) {
	files, err := r.Reconstruct(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("write archive: %w", err)
	}
	zw := zip.NewWriter(w)
	written := 0
	for _, f := range files {
		hdr := &zip.FileHeader{
			Name:     f.Path,
			Method:   zip.Deflate,
			Modified: time.Unix(0, 0).UTC(),
		}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return written, fmt.Errorf("write archive: %s: %w", f.Path, err)
		}
		if _, err := entry.Write(f.Source); err != nil {
			return written, fmt.Errorf("write archive: %s: %w", f.Path, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("write archive: close: %w", err)
	}
	return written, nil
}

// Archive returns the zip archive of the slice's reconstructed files.
func (r *Reconstructor) Archive(ctx context.Context, s *Slice) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.WriteArchive(ctx, s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
