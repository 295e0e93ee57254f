package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/acprobe/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatForPath picks the on-disk format from the file extension:
// ".msgpack" and ".mp" select MessagePack, everything else JSON.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatJSON
	}
}

// Persist writes result to path, replacing any existing file.
// Missing parent directories are created. The file is written to a
// temporary sibling first and renamed into place, so an interrupted write
// never leaves a truncated record behind.
func Persist(path string, result *model.Result) error {
	if result == nil {
		return ErrNoResult
	}

	var buf bytes.Buffer
	var w Writer
	if FormatForPath(path) == FormatMsgpack {
		w = NewMsgpackWriter(&buf)
	} else {
		w = NewJSONWriter(&buf, WithPrettyPrint())
	}
	if _, err := w.WriteResult(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()        //nolint:errcheck // write error takes precedence
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // result file is meant to be shared
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Load reads a result record written by Persist.
func Load(path string) (*model.Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, err
	}

	var result model.Result
	if FormatForPath(path) == FormatMsgpack {
		err = msgpack.Unmarshal(data, &result)
	} else {
		err = json.Unmarshal(data, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if result.Names == nil {
		result.Names = []string{}
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResult, path)
	}
	return &result, nil
}
