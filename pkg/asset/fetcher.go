package asset

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ynnoj/gatsby-source-printful/pkg/errors"
	"github.com/ynnoj/gatsby-source-printful/pkg/node"
	"github.com/ynnoj/gatsby-source-printful/pkg/transport/rest"
)

// maxAssetSize bounds a single download
const maxAssetSize = 32 << 20

// Asset is a remote image cached on local disk
type Asset struct {
	ID   string
	URL  string
	Path string
}

// Fetcher downloads and registers a remote asset. A nil Asset with a nil
// error means downloads are disabled.
type Fetcher interface {
	Fetch(ctx context.Context, url, ownerID string) (*Asset, error)
}

// ID derives the stable asset id for url as requested by ownerID
func ID(rawURL, ownerID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ownerID+"|"+rawURL)).String()
}

// DiskFetcher stores images under Dir and registers a PrintfulImage node
// for each one.
type DiskFetcher struct {
	Dir string

	client rest.HTTPDoer
	sink   node.Sink
}

// NewDiskFetcher creates the cache directory if needed
func NewDiskFetcher(dir string, client rest.HTTPDoer, sink node.Sink) (*DiskFetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "create asset dir")
	}
	return &DiskFetcher{Dir: dir, client: client, sink: sink}, nil
}

// Fetch downloads rawURL unless a cached copy exists, then emits the image node
func (f *DiskFetcher) Fetch(ctx context.Context, rawURL, ownerID string) (*Asset, error) {
	id := ID(rawURL, ownerID)

	p, err := f.cached(id)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrAsset, rawURL)
	}
	if p == "" {
		if p, err = f.download(ctx, id, rawURL); err != nil {
			return nil, errors.WrapError(err, errors.ErrAsset, rawURL)
		}
	}

	a := &Asset{ID: id, URL: rawURL, Path: p}
	if err := f.register(ctx, a, ownerID); err != nil {
		return nil, errors.WrapError(err, errors.ErrAsset, rawURL)
	}
	return a, nil
}

func (f *DiskFetcher) cached(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(f.Dir, id+".*"))
	if err != nil || len(matches) == 0 {
		return "", err
	}
	return matches[0], nil
}

func (f *DiskFetcher) download(ctx context.Context, id, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("not an image: %q", resp.Header.Get("Content-Type"))
	}

	tmp, err := os.CreateTemp(f.Dir, id+"-*.part")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxAssetSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if n > maxAssetSize {
		return "", fmt.Errorf("asset larger than %d bytes", maxAssetSize)
	}

	dst := filepath.Join(f.Dir, id+extension(rawURL, mediaType))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (f *DiskFetcher) register(ctx context.Context, a *Asset, ownerID string) error {
	digest, err := node.Digest(map[string]string{"url": a.URL, "owner": ownerID})
	if err != nil {
		return err
	}

	n := node.New(a.ID, node.TypeImage)
	n.Parent = ownerID
	n.Fields["url"] = a.URL
	n.Fields["path"] = a.Path
	n.Digest = digest
	return f.sink.CreateNode(ctx, n)
}

func extension(rawURL, mediaType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

// NopFetcher never downloads anything
type NopFetcher struct{}

func (NopFetcher) Fetch(context.Context, string, string) (*Asset, error) {
	return nil, nil
}
