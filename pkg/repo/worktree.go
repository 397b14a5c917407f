package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/grit/pkg/object"
)

// WriteTree snapshots the working directory into the object store and
// returns the root tree hash. The .git directory is skipped; regular files
// become blobs with mode 100644 (100755 when executable), symlinks become
// blobs of their target path with mode 120000, and subdirectories recurse.
// Any other filesystem object kind is ignored.
func (r *Repo) WriteTree() (object.Hash, error) {
	return r.writeTreeDir(r.RootDir)
}

func (r *Repo) writeTreeDir(dir string) (object.Hash, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("write tree: read dir %q: %w", dir, err)
	}

	var entries []object.TreeEntry
	for _, de := range dirEntries {
		name := de.Name()
		if name == ".git" {
			continue
		}
		path := filepath.Join(dir, name)

		switch {
		case de.IsDir():
			subHash, err := r.writeTreeDir(path)
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.TreeModeDir,
				Name: name,
				Hash: subHash,
			})

		case de.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return "", fmt.Errorf("write tree: readlink %q: %w", path, err)
			}
			blobHash, err := r.Store.Write(object.TypeBlob, []byte(target))
			if err != nil {
				return "", err
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.TreeModeSymlink,
				Name: name,
				Hash: blobHash,
			})

		case de.Type().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("write tree: read %q: %w", path, err)
			}
			blobHash, err := r.Store.Write(object.TypeBlob, data)
			if err != nil {
				return "", err
			}
			mode := object.TreeModeFile
			if info, err := de.Info(); err == nil && info.Mode()&0o111 != 0 {
				mode = object.TreeModeExecutable
			}
			entries = append(entries, object.TreeEntry{
				Mode: mode,
				Name: name,
				Hash: blobHash,
			})

		default:
			// Sockets, devices, fifos: not representable in a tree.
		}
	}

	payload, err := object.MarshalTree(&object.Tree{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree %q: %w", dir, err)
	}
	return r.Store.Write(object.TypeTree, payload)
}

// Checkout materializes the tree at treeHash into dir, creating it if
// needed. Blobs are written byte-for-byte; mode 100755 entries get the
// executable bit and mode 120000 entries become symlinks.
func (r *Repo) Checkout(treeHash object.Hash, dir string) error {
	tree, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkout: mkdir %q: %w", dir, err)
	}

	for _, entry := range tree.Entries {
		path := filepath.Join(dir, entry.Name)

		switch entry.Mode {
		case object.TreeModeDir:
			if err := r.Checkout(entry.Hash, path); err != nil {
				return err
			}

		case object.TreeModeSymlink:
			blob, err := r.Store.ReadBlob(entry.Hash)
			if err != nil {
				return fmt.Errorf("checkout: read symlink blob for %q: %w", entry.Name, err)
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("checkout: replace %q: %w", path, err)
			}
			if err := os.Symlink(string(blob.Data), path); err != nil {
				return fmt.Errorf("checkout: symlink %q: %w", path, err)
			}

		default:
			blob, err := r.Store.ReadBlob(entry.Hash)
			if err != nil {
				return fmt.Errorf("checkout: read blob for %q: %w", entry.Name, err)
			}
			perm := os.FileMode(0o644)
			if entry.Mode == object.TreeModeExecutable {
				perm = 0o755
			}
			if err := os.WriteFile(path, blob.Data, perm); err != nil {
				return fmt.Errorf("checkout: write %q: %w", path, err)
			}
		}
	}
	return nil
}
