package bagit

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/golang/groupcache/singleflight"
	"golang.org/x/sync/errgroup"

	"github.com/preservio/bagit/util"
)

// Fetch downloads every fetch list entry whose destination file does not
// exist yet. Entries are processed in order, one at a time. A failed entry
// is recorded on the bag's error list under the label "fetch" and any
// partially written file is removed; the remaining entries are still
// processed. Fetch returns only errors in its own machinery, never
// per-entry download failures.
func (b *Bag) Fetch() error {
	return b.FetchParallel(1)
}

// FetchParallel is Fetch with up to n downloads in flight at once. Entries
// sharing a destination path are serialized, so the result is the same as
// a sequential fetch. One entry's failure does not stop the others.
func (b *Bag) FetchParallel(n int) error {
	if n < 1 {
		n = 1
	}
	gate := util.NewGate(n)
	var m sync.Mutex // protects b.errlist
	var flight singleflight.Group
	var g errgroup.Group
	for _, entry := range b.fetch {
		entry := entry
		g.Go(func() error {
			if !gate.Enter() {
				return nil
			}
			defer gate.Leave()
			// serialize same-destination entries
			_, _ = flight.Do(entry.Path, func() (interface{}, error) {
				err := b.fetchOne(entry)
				if err != nil {
					m.Lock()
					b.errlist = append(b.errlist, BagError{
						Path:    "fetch",
						Message: fmt.Sprintf("Unable to fetch %s: %s", entry.URL, err.Error()),
					})
					m.Unlock()
				}
				return nil, nil
			})
			return nil
		})
	}
	return g.Wait()
}

// FetchAndReconcile downloads missing entries and then brings the manifests
// back in sync and revalidates the bag.
func (b *Bag) FetchAndReconcile() ([]BagError, error) {
	if err := b.Fetch(); err != nil {
		return nil, err
	}
	if err := b.Update(); err != nil {
		return nil, err
	}
	return b.Validate()
}

// fetchOne resolves a single entry. Destinations already on disk are
// skipped. On failure a partial destination file is deleted so a later
// retry starts clean.
func (b *Bag) fetchOne(entry FetchEntry) error {
	dest := filepath.Join(b.root, filepath.FromSlash(entry.Path))
	if exists(dest) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0775); err != nil {
		return err
	}
	err := b.download(entry.URL, dest)
	if err != nil {
		raven.CaptureError(err, map[string]string{"URL": entry.URL, "Bag": b.root})
		os.Remove(dest)
	}
	return err
}

// downloads share one client. the timeout covers the whole transfer, so it
// is generous.
var fetchClient = &http.Client{
	Timeout: 10 * time.Minute, // arbitrary
}

func (b *Bag) download(url, dest string) error {
	resp, err := b.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("received status %d from %s", resp.StatusCode, url)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, resp.Body)
	if err2 := out.Close(); err == nil {
		err = err2
	}
	return err
}

// SetClient replaces the HTTP client used for fetching. Mostly useful for
// testing against a local server.
func (b *Bag) SetClient(c *http.Client) {
	b.client = c
}
