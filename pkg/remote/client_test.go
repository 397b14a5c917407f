package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/odvcencio/grit/pkg/object"
)

func pkt(t *testing.T, line string) []byte {
	t.Helper()
	out, err := EncodePktLine([]byte(line))
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func advertisement(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(pkt(t, "# service=git-upload-pack\n"))
	buf.WriteString("0000")
	for _, line := range lines {
		buf.Write(pkt(t, line))
	}
	buf.WriteString("0000")
	return buf.Bytes()
}

const (
	testHeadHash   = object.Hash("1111111111111111111111111111111111111111")
	testBranchHash = object.Hash("2222222222222222222222222222222222222222")
)

func TestInfoRefsParsesAdvertisement(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info/refs" || r.URL.Query().Get("service") != "git-upload-pack" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != "grit/1" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write(advertisement(t,
			string(testHeadHash)+" HEAD\x00multi_ack side-band-64k\n",
			string(testHeadHash)+" refs/heads/master\n",
			string(testBranchHash)+" refs/heads/feature\n",
		))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	adv, err := client.InfoRefs(context.Background())
	if err != nil {
		t.Fatalf("InfoRefs: %v", err)
	}

	if len(adv.Refs) != 3 {
		t.Fatalf("refs = %d, want 3", len(adv.Refs))
	}
	if h, ok := adv.Lookup("HEAD"); !ok || h != testHeadHash {
		t.Errorf("HEAD = (%s, %v)", h, ok)
	}
	if h, ok := adv.Lookup("refs/heads/feature"); !ok || h != testBranchHash {
		t.Errorf("feature = (%s, %v)", h, ok)
	}
	if len(adv.Capabilities) != 2 || adv.Capabilities[0] != "multi_ack" {
		t.Errorf("capabilities = %v", adv.Capabilities)
	}
}

func TestInfoRefsSkipsMalformedLines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(advertisement(t,
			"nonsense-without-space\n",
			"tooshort refs/heads/x\n",
			string(testHeadHash)+" HEAD\n",
		))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	adv, err := client.InfoRefs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(adv.Refs) != 1 || adv.Refs[0].Name != "HEAD" {
		t.Errorf("refs = %+v", adv.Refs)
	}
}

func TestInfoRefsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such repository", http.StatusNotFound)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.InfoRefs(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestUploadPackRequestAndResponse(t *testing.T) {
	packBytes := []byte("PACKnot-really-a-pack-but-returned-verbatim")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/git-upload-pack" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != uploadPackContentType {
			t.Errorf("Content-Type = %q", ct)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		want := fmt.Sprintf("0032want %s\n00000009done\n", testHeadHash)
		if string(body) != want {
			t.Errorf("body = %q, want %q", body, want)
		}

		// A NAK pkt-line precedes the pack, as permissive servers send.
		w.Write(pkt(t, "NAK\n"))
		w.Write(packBytes)
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}

	got, err := client.UploadPack(context.Background(), testHeadHash)
	if err != nil {
		t.Fatalf("UploadPack: %v", err)
	}
	if !bytes.Equal(got, packBytes) {
		t.Errorf("pack = %q", got)
	}
}

func TestUploadPackMissingMarker(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pkt(t, "NAK\n"))
	}))
	defer ts.Close()

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.UploadPack(context.Background(), testHeadHash); err == nil {
		t.Error("response without PACK should fail")
	}
}

func TestUploadPackRejectsInvalidWant(t *testing.T) {
	client, err := NewClient("http://example.invalid/repo")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.UploadPack(context.Background(), "nothex"); err == nil {
		t.Error("invalid want should fail before any request")
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		w.Write(advertisement(t, string(testHeadHash)+" HEAD\n"))
	}))
	defer ts.Close()

	client, err := NewClientWithOptions(ts.URL, ClientOptions{MaxAttempts: 3})
	if err != nil {
		t.Fatal(err)
	}
	adv, err := client.InfoRefs(context.Background())
	if err != nil {
		t.Fatalf("InfoRefs after retry: %v", err)
	}
	if len(adv.Refs) != 1 {
		t.Errorf("refs = %+v", adv.Refs)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "ssh://host/repo", "not a url at all"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("NewClient(%q) should fail", raw)
		}
	}
}
