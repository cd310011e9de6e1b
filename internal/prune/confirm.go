package prune

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hgprune/internal/model"
)

var (
	hashStyle      = lipgloss.NewStyle().Bold(true)
	successorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	promptStyle    = lipgloss.NewStyle().Faint(true)
)

// Pruner retires a revision, recording the changeset that superseded it.
type Pruner interface {
	Prune(ctx context.Context, rev, successor string) error
}

// Confirmer walks candidates one at a time, prompting the operator and
// pruning on acceptance. Strictly sequential: each prompt blocks until
// answered, and an accepted prune completes before the next candidate.
type Confirmer struct {
	Pruner Pruner
	In     io.Reader
	Out    io.Writer
}

// Run prompts for every candidate in order and returns how many were pruned.
// A prune failure aborts the remaining loop; revisions already pruned stay
// pruned.
func (c *Confirmer) Run(ctx context.Context, cands []model.Candidate) (int, error) {
	reader := bufio.NewReader(c.In)
	pruned := 0
	for _, cand := range cands {
		accepted, err := c.confirm(ctx, reader, cand)
		if err != nil {
			return pruned, err
		}
		if !accepted {
			continue
		}
		if err := c.Pruner.Prune(ctx, cand.Revision.Hash, cand.Successor); err != nil {
			return pruned, fmt.Errorf("prune %s: %w", cand.Revision.ShortHash(), err)
		}
		pruned++
	}
	return pruned, nil
}

// confirm shows one candidate and loops until the operator answers. Empty
// input accepts, "n" rejects, anything else re-prompts.
func (c *Confirmer) confirm(ctx context.Context, reader *bufio.Reader, cand model.Candidate) (bool, error) {
	subject := cand.Revision.Subject()
	if subject == "" {
		subject = "<no description>"
	}
	fmt.Fprintf(c.Out, "%s %s\n  prune to %s? ",
		hashStyle.Render(cand.Revision.ShortHash()),
		subject,
		successorStyle.Render(cand.Successor))

	for {
		fmt.Fprint(c.Out, promptStyle.Render("[Yn] >")+" ")

		line, err := readLine(ctx, reader)
		if err == io.EOF && line != "" {
			err = nil // final line without a trailing newline
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, errors.New("confirmation input closed")
			}
			return false, fmt.Errorf("read confirmation: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

// readLine returns the next input line or ctx.Err() on cancellation, so an
// interrupt during a prompt does not leave the loop wedged on a blocked read.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		resultCh <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		return res.line, res.err
	}
}
