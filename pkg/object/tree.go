package object

import (
	"bytes"
	"fmt"
	"sort"
)

// MarshalTree serializes a Tree to the binary wire form: for each entry,
// "mode SP name NUL raw20". Entries are sorted into canonical Git order
// first, so callers may pass them in any order.
func MarshalTree(tr *Tree) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeEntryLess(sorted[i], sorted[j])
	})

	var buf bytes.Buffer
	var prev string
	for i, e := range sorted {
		key := sortKey(e)
		if i > 0 && key == prev {
			return nil, fmt.Errorf("marshal tree: duplicate entry %q", e.Name)
		}
		prev = key

		raw, err := e.Hash.Raw()
		if err != nil {
			return nil, fmt.Errorf("marshal tree entry %q: %w", e.Name, err)
		}
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// treeEntryLess implements canonical Git tree ordering: byte-lexicographic
// on name, with directory names compared as if a trailing '/' were
// appended. That makes "a.b" sort before a directory "a" even though plain
// byte order says otherwise.
func treeEntryLess(a, b TreeEntry) bool {
	return sortKey(a) < sortKey(b)
}

func sortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// UnmarshalTree parses the binary tree payload. Each entry is
// "mode SP name NUL raw20"; a short or malformed entry is an error.
func UnmarshalTree(data []byte) (*Tree, error) {
	tr := &Tree{}
	pos := 0
	for pos < len(data) {
		sp := bytes.IndexByte(data[pos:], ' ')
		if sp < 0 {
			return nil, fmt.Errorf("unmarshal tree: missing space after mode at offset %d", pos)
		}
		mode := string(data[pos : pos+sp])
		pos += sp + 1

		nul := bytes.IndexByte(data[pos:], 0)
		if nul < 0 {
			return nil, fmt.Errorf("unmarshal tree: missing NUL after name at offset %d", pos)
		}
		name := string(data[pos : pos+nul])
		pos += nul + 1

		if pos+RawHashLen > len(data) {
			return nil, fmt.Errorf("unmarshal tree: truncated hash for entry %q", name)
		}
		h, err := HashFromRaw(data[pos : pos+RawHashLen])
		if err != nil {
			return nil, fmt.Errorf("unmarshal tree entry %q: %w", name, err)
		}
		pos += RawHashLen

		tr.Entries = append(tr.Entries, TreeEntry{Mode: mode, Name: name, Hash: h})
	}
	return tr, nil
}

// DisplayMode left-pads a mode to six digits for ls-tree output. The stored
// form never carries leading zeros; only display does.
func DisplayMode(mode string) string {
	for len(mode) < 6 {
		mode = "0" + mode
	}
	return mode
}
