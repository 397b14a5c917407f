// Package repo manages on-disk Git repositories: the .git metadata
// directory, HEAD and refs, and the working tree on either side of the
// object store (snapshot on write-tree, materialization on checkout).
package repo

import (
	"github.com/odvcencio/grit/pkg/object"
)

// Repo represents an opened repository. Every operation takes its paths
// from the handle; nothing in the package reads process-global state.
type Repo struct {
	RootDir string        // working directory root
	GitDir  string        // .git directory
	Store   *object.Store // content-addressed object store
}
