package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FileResult pairs an input path with its analysis or error.
type FileResult struct {
	Path     string
	Analysis *Analysis
	Err      error
}

// BuildFiles analyses paths with at most jobs running at once (jobs <= 0
// means GOMAXPROCS). Results follow input order. A failing file is recorded
// in its FileResult and does not stop the others; only cancellation of ctx
// aborts the batch.
func BuildFiles(ctx context.Context, paths []string, jobs int, base Request) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, p := range paths {
		emit(base.Progress, p, StageLoad, StatusQueued, nil, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = FileResult{Path: path, Err: gctx.Err()}
				return gctx.Err()
			default:
			}
			req := base
			req.Path = path
			req.Name = path
			req.Data = nil
			a, err := Analyze(gctx, req)
			results[i] = FileResult{Path: path, Analysis: a, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
