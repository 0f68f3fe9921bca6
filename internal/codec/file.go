package codec

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

// WriteFile encodes p and replaces the file at path with the result.
// The document is written to a temporary file in the same directory and renamed
// into place, so readers see either the old content or the complete new one.
func WriteFile(path string, p core.Path) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file in %s: %w", core.ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", core.ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync %s: %w", core.ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", core.ErrIO, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: failed to chmod %s: %w", core.ErrIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %w", core.ErrIO, path, err)
	}
	return nil
}

// ReadFile loads and decodes the path document at path.
func ReadFile(path string) (core.Path, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Path{}, fmt.Errorf("%w: failed to read %s: %w", core.ErrIO, path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return core.Path{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
