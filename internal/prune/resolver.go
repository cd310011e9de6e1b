// Package prune decides which local draft revisions have already landed in
// mozilla-central and retires them after operator confirmation.
package prune

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hgprune/internal/bugzilla"
	"hgprune/internal/model"
)

// LandedPrefix starts every comment Bugzilla bots post when a change merges
// to mozilla-central. The landed hash is the final path segment.
const LandedPrefix = "https://hg.mozilla.org/mozilla-central/rev/"

// DefaultConcurrency bounds parallel Bugzilla lookups during resolution.
const DefaultConcurrency = 4

// IssueClient is the slice of the Bugzilla API the resolver consumes.
type IssueClient interface {
	Details(ctx context.Context, id string) (*bugzilla.BugDetail, error)
	Comments(ctx context.Context, id string) ([]bugzilla.Comment, error)
}

// Resolver maps draft revisions to the hashes they landed under.
type Resolver struct {
	Issues IssueClient

	// Concurrency bounds parallel per-revision lookups. Zero means
	// DefaultConcurrency.
	Concurrency int
}

// Resolve returns a candidate for every revision whose bug is completed and
// carries a landing comment. Candidates keep the input order. Lookups run
// concurrently, but a single failed lookup aborts the whole resolution: a
// revision silently skipped on error could hide a real landing.
func (r *Resolver) Resolve(ctx context.Context, revs []model.Revision) ([]model.Candidate, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]*model.Candidate, len(revs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, rev := range revs {
		i, rev := i, rev
		g.Go(func() error {
			cand, err := r.resolve(ctx, rev)
			if err != nil {
				return err
			}
			results[i] = cand
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var cands []model.Candidate
	for _, cand := range results {
		if cand != nil {
			cands = append(cands, *cand)
		}
	}
	return cands, nil
}

// resolve runs the per-revision pipeline. Each step is a filter: a miss means
// no candidate, not an error.
func (r *Resolver) resolve(ctx context.Context, rev model.Revision) (*model.Candidate, error) {
	id, ok := rev.Bug()
	if !ok {
		return nil, nil
	}

	details, err := r.Issues.Details(ctx, id)
	if err != nil {
		return nil, err
	}
	if !details.Status.Completed() {
		log.Debug().Str("rev", rev.ShortHash()).Str("bug", id).
			Str("status", string(details.Status)).Msg("bug not completed, skipping")
		return nil, nil
	}

	comments, err := r.Issues.Comments(ctx, id)
	if err != nil {
		return nil, err
	}
	successor, ok := landedHash(comments)
	if !ok {
		return nil, nil
	}

	return &model.Candidate{Revision: rev, Successor: successor}, nil
}

// landedHash scans the discussion newest-first and returns the hash from the
// most recent landing comment. Comments whose final path segment is not pure
// hex are ignored; a truncated or mangled URL must not become a successor.
func landedHash(comments []bugzilla.Comment) (string, bool) {
	for i := len(comments) - 1; i >= 0; i-- {
		body := comments[i].RawText
		if !strings.HasPrefix(body, LandedPrefix) {
			continue
		}
		hash := body[strings.LastIndex(body, "/")+1:]
		if isHex(hash) {
			return hash, true
		}
	}
	return "", false
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
