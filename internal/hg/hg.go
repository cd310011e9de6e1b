package hg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"hgprune/internal/model"
)

// DraftRevset selects local draft revisions that have not been obsoleted.
const DraftRevset = "draft() and not(obsolete())"

// execCommand is overridden in tests to avoid spawning a real hg binary.
var execCommand = exec.CommandContext

// Client runs Mercurial commands against one repository.
type Client struct {
	repoPath string
}

// New returns a client operating on the repository at repoPath.
func New(repoPath string) *Client {
	return &Client{repoPath: repoPath}
}

// run invokes hg with -R <repo> plus args and returns its stdout.
// A non-zero exit is reported with hg's own diagnostic output.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	log.Debug().Strs("args", args).Str("repo", c.repoPath).Msg("running hg")

	cmd := execCommand(ctx, "hg", append([]string{"-R", c.repoPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := commandOutput(stdout.Bytes(), stderr.Bytes()); msg != "" {
			return nil, fmt.Errorf("hg %s: %s", args[0], msg)
		}
		return nil, fmt.Errorf("hg %s: %w", args[0], err)
	}
	return stdout.Bytes(), nil
}

// commandOutput collapses hg's stdout and stderr into one diagnostic string.
// stderr usually carries the reason; stdout is usually empty on failure.
func commandOutput(stdout, stderr []byte) string {
	return strings.TrimSpace(string(stdout) + string(stderr))
}

// Pull fetches new changesets from the default remote without touching the
// working directory.
func (c *Client) Pull(ctx context.Context) error {
	_, err := c.run(ctx, "pull")
	return err
}

// Log lists revisions matching revset, oldest first. An empty revset lists
// the whole repository.
func (c *Client) Log(ctx context.Context, revset string) ([]model.Revision, error) {
	args := []string{"log", "--template", "json"}
	if revset != "" {
		args = append(args, "--rev", revset)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

func parseLog(out []byte) ([]model.Revision, error) {
	var revs []model.Revision
	if err := json.Unmarshal(out, &revs); err != nil {
		return nil, fmt.Errorf("parse hg log output: %w", err)
	}
	return revs, nil
}

// Prune marks rev obsolete, recording successor as the changeset that
// superseded it. Requires the evolve extension.
func (c *Client) Prune(ctx context.Context, rev, successor string) error {
	args := []string{"prune", "--ref", rev}
	if successor != "" {
		args = append(args, "--succ", successor)
	}
	_, err := c.run(ctx, args...)
	return err
}
