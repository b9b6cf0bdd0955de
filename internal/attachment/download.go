package attachment

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result records one download attempt. A failed attempt carries Err and an
// empty LocalPath; results are never mutated after creation.
type Result struct {
	AttachmentID string `json:"attachment_id"`
	Filename     string `json:"filename"`
	LocalPath    string `json:"local_path,omitempty"`
	Bytes        int64  `json:"size_bytes"`
	Err          error  `json:"-"`
}

// ErrString returns the error text for JSON summaries, empty on success.
func (r Result) ErrString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Fetcher opens the byte stream for one attachment.
type Fetcher func(ctx context.Context, ref Ref) (io.ReadCloser, error)

const defaultWorkers = 4

// Downloader fetches batches of attachments with a bounded worker pool.
// Each item fails independently; one bad download never aborts the batch.
type Downloader struct {
	Workers int
	Fetch   Fetcher

	// ProgressFn, if set, is called once per finished item (success or
	// failure). Used by the CLI to drive progress bars.
	ProgressFn func(Result)
}

// DownloadAll fetches every ref, resolving target paths through resolve.
// The returned slice preserves input order regardless of completion order,
// one Result per input. Filename collisions within the batch or with files
// already on disk get a _1/_2 suffix before the extension.
func (d *Downloader) DownloadAll(ctx context.Context, refs []Ref, resolve func(Ref) (string, error)) []Result {
	results := make([]Result, len(refs))

	workers := d.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var mu sync.Mutex
	taken := make(map[string]bool, len(refs))
	claim := func(ref Ref) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		base, err := resolve(ref)
		if err != nil {
			return "", err
		}
		path := uniquePath(base, taken)
		taken[path] = true
		return path, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			res := d.downloadOne(gctx, ref, claim)
			results[i] = res
			if d.ProgressFn != nil {
				d.ProgressFn(res)
			}
			// Per-item errors live in the Result; returning them here
			// would cancel the rest of the batch.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Downloader) downloadOne(ctx context.Context, ref Ref, claim func(Ref) (string, error)) Result {
	res := Result{AttachmentID: ref.ID, Filename: ref.Filename}

	if ref.DownloadURL == "" {
		res.Err = fmt.Errorf("attachment %s has no download URL", ref.ID)
		return res
	}

	path, err := claim(ref)
	if err != nil {
		res.Err = err
		return res
	}

	body, err := d.Fetch(ctx, ref)
	if err != nil {
		res.Err = err
		return res
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		res.Err = fmt.Errorf("create %s: %w", path, err)
		return res
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		res.Err = fmt.Errorf("write %s: %w", path, err)
		return res
	}

	res.LocalPath = path
	res.Bytes = n
	return res
}
