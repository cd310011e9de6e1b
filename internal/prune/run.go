package prune

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"hgprune/internal/hg"
	"hgprune/internal/model"
)

// Source is the slice of the Mercurial client a run consumes.
type Source interface {
	Pull(ctx context.Context) error
	Log(ctx context.Context, revset string) ([]model.Revision, error)
	Prune(ctx context.Context, rev, successor string) error
}

// Options tune a run.
type Options struct {
	// Concurrency bounds parallel Bugzilla lookups. Zero means
	// DefaultConcurrency.
	Concurrency int
}

// Run executes one pruning pass: best-effort pull, list drafts, resolve
// landings, confirm and prune. Messages for the operator go to out; prompts
// read from in.
func Run(ctx context.Context, src Source, issues IssueClient, in io.Reader, out io.Writer, opts Options) error {
	// Fresher remote state improves the landing search, but a broken remote
	// should not block pruning against local state.
	if err := src.Pull(ctx); err != nil {
		log.Warn().Err(err).Msg("pull failed, continuing with local state")
	}

	revs, err := src.Log(ctx, hg.DraftRevset)
	if err != nil {
		return fmt.Errorf("list draft revisions: %w", err)
	}
	if len(revs) == 0 {
		fmt.Fprintln(out, "No draft revisions found.")
		return nil
	}

	resolver := &Resolver{Issues: issues, Concurrency: opts.Concurrency}
	cands, err := resolver.Resolve(ctx, revs)
	if err != nil {
		return fmt.Errorf("resolve landed revisions: %w", err)
	}
	if len(cands) == 0 {
		fmt.Fprintln(out, "No prunable revisions found.")
		return nil
	}

	confirmer := &Confirmer{Pruner: src, In: in, Out: out}
	_, err = confirmer.Run(ctx, cands)
	return err
}
