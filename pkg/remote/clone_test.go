package remote

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/grit/pkg/object"
)

// testRemoteRepo is a minimal in-memory upload-pack server: one commit,
// one tree, two blobs, packed on demand.
type testRemoteRepo struct {
	head    object.Hash
	branch  string
	objects []struct {
		packType object.PackObjectType
		data     []byte
	}
}

func newTestRemoteRepo(t *testing.T) *testRemoteRepo {
	t.Helper()

	readme := []byte("Hello World!\n")
	script := []byte("#!/bin/sh\necho hi\n")
	readmeHash := object.HashObject(object.TypeBlob, readme)
	scriptHash := object.HashObject(object.TypeBlob, script)

	treePayload, err := object.MarshalTree(&object.Tree{Entries: []object.TreeEntry{
		{Mode: object.TreeModeFile, Name: "README", Hash: readmeHash},
		{Mode: object.TreeModeExecutable, Name: "hi.sh", Hash: scriptHash},
	}})
	if err != nil {
		t.Fatal(err)
	}
	treeHash := object.HashObject(object.TypeTree, treePayload)

	commitPayload := object.MarshalCommit(&object.Commit{
		Tree: treeHash,
		Author: object.Signature{
			Name: "John Doe", Email: "john@example.com", When: 1234567890, TZ: "+0000",
		},
		Committer: object.Signature{
			Name: "John Doe", Email: "john@example.com", When: 1234567890, TZ: "+0000",
		},
		Message: "initial\n",
	})
	commitHash := object.HashObject(object.TypeCommit, commitPayload)

	repo := &testRemoteRepo{
		head:   commitHash,
		branch: "refs/heads/master",
	}
	add := func(packType object.PackObjectType, data []byte) {
		repo.objects = append(repo.objects, struct {
			packType object.PackObjectType
			data     []byte
		}{packType, data})
	}
	add(object.PackCommit, commitPayload)
	add(object.PackTree, treePayload)
	add(object.PackBlob, readme)
	add(object.PackBlob, script)
	return repo
}

func (tr *testRemoteRepo) pack(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	pw, err := object.NewPackWriter(&buf, uint32(len(tr.objects)))
	if err != nil {
		t.Fatal(err)
	}
	for _, obj := range tr.objects {
		if err := pw.WriteEntry(obj.packType, obj.data); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := pw.Finish(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (tr *testRemoteRepo) serve(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/info/refs":
			w.Write(advertisement(t,
				string(tr.head)+" HEAD\x00multi_ack\n",
				string(tr.head)+" "+tr.branch+"\n",
			))
		case r.Method == http.MethodPost && r.URL.Path == "/git-upload-pack":
			w.Write(pkt(t, "NAK\n"))
			w.Write(tr.pack(t))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
}

func TestCloneEndToEnd(t *testing.T) {
	remoteRepo := newTestRemoteRepo(t)
	ts := remoteRepo.serve(t)
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "demo")
	result, err := Clone(context.Background(), client, target, nil)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if result.Head != remoteRepo.head {
		t.Errorf("head = %s, want %s", result.Head, remoteRepo.head)
	}
	if result.Branch != "refs/heads/master" {
		t.Errorf("branch = %s", result.Branch)
	}
	if result.Objects != 4 {
		t.Errorf("objects = %d, want 4", result.Objects)
	}

	// Working tree materialized.
	readme, err := os.ReadFile(filepath.Join(target, "README"))
	if err != nil {
		t.Fatalf("README missing: %v", err)
	}
	if string(readme) != "Hello World!\n" {
		t.Errorf("README = %q", readme)
	}

	// HEAD bound to the advertised branch, ref file holding the tip.
	head, err := os.ReadFile(filepath.Join(target, ".git", "HEAD"))
	if err != nil {
		t.Fatal(err)
	}
	if string(head) != "ref: refs/heads/master\n" {
		t.Errorf("HEAD = %q", head)
	}
	refData, err := os.ReadFile(filepath.Join(target, ".git", "refs", "heads", "master"))
	if err != nil {
		t.Fatal(err)
	}
	if string(refData) != string(remoteRepo.head)+"\n" {
		t.Errorf("ref = %q", refData)
	}

	// Every packed object landed in the store with a verifiable digest.
	store := object.NewStore(filepath.Join(target, ".git"))
	for _, obj := range remoteRepo.objects {
		kind, _ := obj.packType.ObjectType()
		h := object.HashObject(kind, obj.data)
		if !store.Has(h) {
			t.Errorf("object %s missing from store", h)
		}
		gotType, gotData, err := store.Read(h)
		if err != nil {
			t.Errorf("read %s: %v", h, err)
			continue
		}
		if gotType != kind || !bytes.Equal(gotData, obj.data) {
			t.Errorf("object %s round-tripped as (%s, %d bytes)", h, gotType, len(gotData))
		}
	}
}

func TestCloneDetachedHead(t *testing.T) {
	remoteRepo := newTestRemoteRepo(t)
	remoteRepo.branch = "refs/heads/trunk" // neither main nor master

	ts := remoteRepo.serve(t)
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "demo")
	result, err := Clone(context.Background(), client, target, nil)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if result.Branch != "" {
		t.Errorf("branch = %q, want detached", result.Branch)
	}

	head, err := os.ReadFile(filepath.Join(target, ".git", "HEAD"))
	if err != nil {
		t.Fatal(err)
	}
	if string(head) != string(remoteRepo.head)+"\n" {
		t.Errorf("HEAD = %q, want detached hash", head)
	}
}

func TestCloneNoUsableHead(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(advertisement(t)) // nothing advertised
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Clone(context.Background(), client, filepath.Join(t.TempDir(), "demo"), nil); err == nil {
		t.Error("clone with no refs should fail")
	}
}

func TestCloneTransportFailureLeavesPartialState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "demo")
	if _, err := Clone(context.Background(), client, target, nil); err == nil {
		t.Fatal("clone should fail")
	}

	// The .git skeleton created before the failure stays on disk; cleanup
	// is not part of the contract.
	if _, err := os.Stat(filepath.Join(target, ".git")); err != nil {
		t.Errorf(".git skeleton missing: %v", err)
	}
}

func TestCloneHeadFallbackToDefaultBranch(t *testing.T) {
	remoteRepo := newTestRemoteRepo(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/info/refs":
			// No HEAD line at all.
			w.Write(advertisement(t, string(remoteRepo.head)+" refs/heads/main\n"))
		case r.Method == http.MethodPost && r.URL.Path == "/git-upload-pack":
			w.Write(pkt(t, "NAK\n"))
			w.Write(remoteRepo.pack(t))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "demo")
	result, err := Clone(context.Background(), client, target, nil)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if result.Branch != "refs/heads/main" || result.Head != remoteRepo.head {
		t.Errorf("result = %+v", result)
	}
}
