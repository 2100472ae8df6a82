package generator

import (
	"context"
	"fmt"
	"runtime"

	"improv/internal/logging"
	"improv/internal/model"

	"golang.org/x/sync/errgroup"
)

// BatchOptions configures Batch.
type BatchOptions struct {
	// Sessions is the number of independent sessions to run.
	Sessions int

	// Prime lists snippets generated on each session's model, in order and
	// with their output discarded, before the requested snippet. Bound
	// snippets primed this way fix those values for the session.
	Prime []string

	// Rand returns the randomness source of a session. Required.
	Rand func(session int) func() float64

	// Concurrency caps parallel sessions. Zero means GOMAXPROCS.
	Concurrency int
}

// Batch generates snippet once in each of opts.Sessions fresh sessions
// running in parallel. Each session is a Clone with its own model, so no
// state is shared between them. When auditing is on, every session's
// counts are merged into g's audit log. Results are in session order.
func (g *Generator) Batch(ctx context.Context, snippet string, opts BatchOptions) ([]string, error) {
	if opts.Rand == nil {
		return nil, ErrNoRand
	}
	if opts.Sessions < 0 {
		return nil, fmt.Errorf("batch: sessions must be >= 0, got %d", opts.Sessions)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	timer := logging.StartTimer(logging.CategoryGenerate, "Batch")
	defer timer.Stop()

	results := make([]string, opts.Sessions)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	for i := range opts.Sessions {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			session, err := g.Clone(opts.Rand(i))
			if err != nil {
				return err
			}

			m := model.New()
			for _, p := range opts.Prime {
				if _, err := session.Generate(p, m); err != nil {
					return fmt.Errorf("session %d: priming: %w", i, err)
				}
			}
			out, err := session.Generate(snippet, m)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			results[i] = out

			if g.audit != nil {
				snap, _ := session.PhraseAudit()
				g.audit.Merge(snap)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	logging.Get(logging.CategoryGenerate).Info("Batch of %d %q sessions complete", opts.Sessions, snippet)
	return results, nil
}
