package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
)

// defaultBranchCandidates are tried in order when binding HEAD to a branch.
var defaultBranchCandidates = []string{"refs/heads/main", "refs/heads/master"}

// CloneResult reports what a completed clone produced.
type CloneResult struct {
	Head    object.Hash
	Branch  string // symbolic ref HEAD points at; empty when detached
	Objects int
}

// Clone materializes the remote repository into targetDir:
// ref discovery, a single-want upload-pack exchange, pack ingest into the
// fresh store, HEAD/ref writing, and checkout of the HEAD commit's tree.
//
// Failures leave partial state under targetDir/.git; nothing is rolled
// back. Progress notes are written to progress when non-nil.
func Clone(ctx context.Context, client *Client, targetDir string, progress io.Writer) (*CloneResult, error) {
	r, err := repo.Init(targetDir)
	if err != nil {
		return nil, err
	}

	adv, err := client.InfoRefs(ctx)
	if err != nil {
		return nil, err
	}

	headHash, branchRef, err := selectHead(adv)
	if err != nil {
		return nil, err
	}
	note(progress, "remote HEAD %s", headHash)

	packData, err := client.UploadPack(ctx, headHash)
	if err != nil {
		return nil, err
	}
	note(progress, "received pack (%d bytes)", len(packData))

	pf, err := object.ReadPack(packData)
	if err != nil {
		return nil, err
	}
	for _, entry := range pf.Entries {
		if err := r.Store.WriteRaw(entry.Hash, object.Envelope(entry.Type, entry.Data)); err != nil {
			return nil, err
		}
	}
	note(progress, "stored %d objects", len(pf.Entries))

	if branchRef != "" {
		if err := r.UpdateRef(branchRef, headHash); err != nil {
			return nil, err
		}
	}
	if err := r.SetHead(branchRef, headHash); err != nil {
		return nil, err
	}

	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("clone: read HEAD commit: %w", err)
	}
	if err := r.Checkout(commit.Tree, targetDir); err != nil {
		return nil, err
	}

	return &CloneResult{
		Head:    headHash,
		Branch:  branchRef,
		Objects: len(pf.Entries),
	}, nil
}

// selectHead picks the digest to fetch and the branch ref HEAD should bind
// to. The advertised HEAD wins when present; otherwise the first default
// branch candidate stands in. The branch ref is whichever candidate the
// advertisement carries, leaving HEAD detached when neither exists.
func selectHead(adv *RefAdvertisement) (object.Hash, string, error) {
	headHash, haveHead := adv.Lookup("HEAD")

	branchRef := ""
	for _, candidate := range defaultBranchCandidates {
		h, ok := adv.Lookup(candidate)
		if !ok {
			continue
		}
		branchRef = candidate
		if !haveHead {
			headHash = h
			haveHead = true
		}
		break
	}

	if !haveHead {
		return "", "", fmt.Errorf("remote advertised no HEAD and no default branch")
	}
	return headHash, branchRef, nil
}

func note(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}
