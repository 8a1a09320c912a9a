package cybervault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// OpenLocalFile describes the regular file at path for upload. The content
// type is sniffed from the file's leading bytes.
func OpenLocalFile(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, fmt.Errorf("open local file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return LocalFile{}, fmt.Errorf("open local file %s: %w: not a regular file", path, ErrInvalidInput)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return LocalFile{}, fmt.Errorf("detect content type: %w", err)
	}

	return LocalFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mtype.String(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
