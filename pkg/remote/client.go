package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odvcencio/grit/pkg/object"
)

const (
	uploadPackService     = "git-upload-pack"
	uploadPackContentType = "application/x-git-upload-pack-request"
	defaultUserAgent      = "grit/1"
)

// Response limits per endpoint type.
const (
	responseLimitRefs = 8 << 20 // 8MB
	responseLimitPack = 1 << 30 // 1GB
)

// ErrTransport marks an HTTP-level failure talking to the remote.
var ErrTransport = errors.New("transport error")

// ClientOptions configures the Smart HTTP client.
type ClientOptions struct {
	Timeout     time.Duration // HTTP client timeout (default 60s)
	MaxAttempts int           // retry attempts (default 3)
	UserAgent   string        // User-Agent header (default grit/1)
}

// Client speaks the Smart HTTP v0 upload-pack protocol against one
// repository URL.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	userAgent   string
}

// NewClient creates a client for the given repository URL with default
// options.
func NewClient(repoURL string) (*Client, error) {
	return NewClientWithOptions(repoURL, ClientOptions{})
}

// NewClientWithOptions creates a client with configurable options.
// Zero-value fields receive defaults (60s timeout, 3 attempts).
func NewClientWithOptions(repoURL string, opts ClientOptions) (*Client, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, fmt.Errorf("repository URL is required")
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return nil, fmt.Errorf("parse repository URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("repository URL must be http(s), got %q", repoURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Client{
		baseURL: strings.TrimRight(repoURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxAttempts: opts.MaxAttempts,
		userAgent:   opts.UserAgent,
	}, nil
}

// AdvertisedRef is one line of the ref advertisement.
type AdvertisedRef struct {
	Name string
	Hash object.Hash
}

// RefAdvertisement is the decoded result of GET /info/refs.
type RefAdvertisement struct {
	Refs         []AdvertisedRef
	Capabilities []string
}

// Lookup returns the hash bound to a ref name.
func (a *RefAdvertisement) Lookup(name string) (object.Hash, bool) {
	for _, ref := range a.Refs {
		if ref.Name == name {
			return ref.Hash, true
		}
	}
	return "", false
}

// InfoRefs performs ref discovery: GET <repo>/info/refs?service=git-upload-pack,
// decoded from pkt-lines. The service announcement line and the flush after
// it are skipped; the first ref line's NUL-separated capability list is
// retained but never negotiated.
func (c *Client) InfoRefs(ctx context.Context) (*RefAdvertisement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info/refs?service="+uploadPackService, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, responseLimitRefs)
	if err != nil {
		return nil, err
	}

	payloads, err := DecodePktLines(body)
	if err != nil {
		return nil, fmt.Errorf("ref advertisement: %w", err)
	}

	adv := &RefAdvertisement{}
	for _, payload := range payloads {
		line := string(TrimPktNewline(payload))
		if strings.HasPrefix(line, "# service=") {
			continue
		}

		hexPart, refPart, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		h := object.Hash(hexPart)
		if !h.Valid() {
			continue
		}

		name, caps, hasCaps := strings.Cut(refPart, "\x00")
		if hasCaps && len(adv.Capabilities) == 0 {
			adv.Capabilities = strings.Fields(caps)
		}
		adv.Refs = append(adv.Refs, AdvertisedRef{Name: name, Hash: h})
	}
	return adv, nil
}

// UploadPack requests a pack containing everything reachable from want:
// POST <repo>/git-upload-pack with body pkt("want <hex>\n") 0000 pkt("done\n").
// No capabilities are negotiated. The returned bytes start at the "PACK"
// magic; whatever the server framed before it (acknowledgements) is
// discarded.
func (c *Client) UploadPack(ctx context.Context, want object.Hash) ([]byte, error) {
	if !want.Valid() {
		return nil, fmt.Errorf("upload-pack: invalid want %q", want)
	}

	wantPkt, err := EncodePktLine([]byte("want " + string(want) + "\n"))
	if err != nil {
		return nil, err
	}
	donePkt, err := EncodePktLine([]byte("done\n"))
	if err != nil {
		return nil, err
	}

	var reqBody bytes.Buffer
	reqBody.Write(wantPkt)
	reqBody.Write(flushPkt)
	reqBody.Write(donePkt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+uploadPackService, bytes.NewReader(reqBody.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", uploadPackContentType)

	body, err := c.do(req, responseLimitPack)
	if err != nil {
		return nil, err
	}

	packStart := bytes.Index(body, []byte("PACK"))
	if packStart < 0 {
		return nil, fmt.Errorf("upload-pack response has no PACK marker")
	}
	return body[packStart:], nil
}

func (c *Client) do(req *http.Request, maxBytes int64) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := retryDo(c.httpClient, req, c.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if readErr != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, readErr)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s %s: %s", ErrTransport, req.Method, req.URL.Path, msg)
	}
	return body, nil
}
