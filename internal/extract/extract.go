// Package extract wraps the system tar binary as an opaque byte-stream-to-
// directory extractor. The tool treats it as an external collaborator: given
// a gzipped tar file and a destination directory, place its contents with
// the top-level "package/" component stripped.
package extract

import (
	"os"
	"os/exec"

	"github.com/minpm/minpm/internal/pkgerr"
)

// TarGz extracts the gzipped tar archive at tarPath into destDir, stripping
// one leading path component (registry tarballs publish a single top-level
// "package/" directory). destDir is created if missing.
func TarGz(identifier, tarPath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &pkgerr.FilesystemError{Path: destDir, Err: err}
	}

	cmd := exec.Command("tar", "-xzf", tarPath, "-C", destDir, "--strip-components=1")
	if out, err := cmd.CombinedOutput(); err != nil {
		return &pkgerr.ExtractionError{Identifier: identifier, Err: wrapOutput(err, out)}
	}
	return nil
}

type outputError struct {
	err    error
	output string
}

func (e *outputError) Error() string {
	if e.output == "" {
		return e.err.Error()
	}
	return e.err.Error() + ": " + e.output
}

func (e *outputError) Unwrap() error { return e.err }

func wrapOutput(err error, out []byte) error {
	return &outputError{err: err, output: string(out)}
}
