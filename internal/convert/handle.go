package convert

import (
	"io"
	"os"
	"sync"
)

// PDFHandle references a successfully produced PDF whose workspace is still
// on disk. The caller streams the file through Open and must Close the
// handle when done; Close releases the underlying workspace exactly once.
// Releasing any earlier would race an in-progress transfer.
type PDFHandle struct {
	// Path is the absolute location of the produced PDF.
	Path string

	// Filename is the caller-visible download name (input stem + ".pdf").
	Filename string

	// Size is the output file's size in bytes.
	Size int64

	release func()
	once    sync.Once
}

// Open returns a reader over the PDF bytes. The handle stays valid until
// Close; closing the returned reader does not release the workspace.
func (h *PDFHandle) Open() (io.ReadCloser, error) {
	return os.Open(h.Path)
}

// Close releases the job's workspace. Safe to call more than once.
func (h *PDFHandle) Close() error {
	h.once.Do(h.release)
	return nil
}
