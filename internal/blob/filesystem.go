package blob

import (
	"trackcore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the
// provided path. Returns the interface so call sites do not depend on the
// concrete implementation.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
