// Package atomicfile writes files through a temporary sibling and a rename so
// readers never observe a half-written file.
package atomicfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// rename is swapped in tests to simulate filesystems without atomic rename.
var rename = os.Rename

// WriteFile writes data to path. The data goes to a temporary file in the same
// directory first and is renamed over path. When the rename fails the temp
// file is discarded and path is written directly; only if that also fails is
// an error returned.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return direct(path, data, perm, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return direct(path, data, perm, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return direct(path, data, perm, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return direct(path, data, perm, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		log.Debug().Err(err).Str("path", tmpName).Msg("chmod on temp file failed")
	}

	if err := rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return direct(path, data, perm, err)
	}

	return nil
}

func direct(path string, data []byte, perm os.FileMode, cause error) error {
	log.Warn().Err(cause).Str("path", path).Msg("atomic write failed, writing in place")

	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.Wrapf(err, "writing %s (atomic attempt: %v)", path, cause)
	}
	return nil
}
