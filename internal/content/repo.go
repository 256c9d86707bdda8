package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Repo reads file bytes from a local checkout of the corpus repository.
type Repo struct {
	root  string
	files Locator
}

func NewRepo(root string, files Locator) (*Repo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("content: repository root is required")
	}
	if files == nil {
		return nil, fmt.Errorf("content: repository provider needs a file locator")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("content: repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: repository root %s is not a directory", root)
	}
	return &Repo{root: root, files: files}, nil
}

func (r *Repo) Content(ctx context.Context, fileID int64) ([]byte, error) {
	rel, ok, err := r.files.FilePath(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	if !ok {
		return nil, nil
	}
	path, err := r.resolve(rel)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	return b, nil
}

// resolve joins rel onto the root, refusing paths that escape it.
func (r *Repo) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repository root", rel)
	}
	return filepath.Join(r.root, clean), nil
}
