package hg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec replaces execCommand with a re-exec of the test binary that prints
// canned output, recording the command line it was asked to run.
func fakeExec(t *testing.T, gotArgs *[]string, stdout, stderr string, exitCode int) {
	t.Helper()
	orig := execCommand
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*gotArgs = append([]string{name}, args...)
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_STDOUT="+stdout,
			"HELPER_STDERR="+stderr,
			"HELPER_EXIT="+strconv.Itoa(exitCode),
		)
		return cmd
	}
	t.Cleanup(func() { execCommand = orig })
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stdout, os.Getenv("HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("HELPER_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT"))
	os.Exit(code)
}

func TestLog(t *testing.T) {
	out := `[
		{"node": "abcdef0123456789abcdef0123456789abcdef01", "desc": "Bug 42 - fix thing\n\ndetails"},
		{"node": "0123456789abcdef0123456789abcdef01234567", "desc": "Refactor"}
	]`
	var gotArgs []string
	fakeExec(t, &gotArgs, out, "", 0)

	revs, err := New("/repo").Log(context.Background(), DraftRevset)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", revs[0].Hash)
	assert.Equal(t, "Bug 42 - fix thing", revs[0].Subject())
	assert.Equal(t, []string{
		"hg", "-R", "/repo", "log", "--template", "json", "--rev", DraftRevset,
	}, gotArgs)
}

func TestLogNoRevset(t *testing.T) {
	var gotArgs []string
	fakeExec(t, &gotArgs, "[]", "", 0)

	revs, err := New("/repo").Log(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, revs)
	assert.Equal(t, []string{"hg", "-R", "/repo", "log", "--template", "json"}, gotArgs)
}

func TestLogParseError(t *testing.T) {
	var gotArgs []string
	fakeExec(t, &gotArgs, "not json", "", 0)

	_, err := New("/repo").Log(context.Background(), DraftRevset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse hg log output")
}

func TestPullFailure(t *testing.T) {
	var gotArgs []string
	fakeExec(t, &gotArgs, "", "abort: no repository found\n", 255)

	err := New("/repo").Pull(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hg pull")
	assert.Contains(t, err.Error(), "abort: no repository found")
}

func TestPrune(t *testing.T) {
	var gotArgs []string
	fakeExec(t, &gotArgs, "", "", 0)

	err := New("/repo").Prune(context.Background(), "abcdef", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"hg", "-R", "/repo", "prune", "--ref", "abcdef", "--succ", "deadbeef",
	}, gotArgs)
}

func TestPruneNoSuccessor(t *testing.T) {
	var gotArgs []string
	fakeExec(t, &gotArgs, "", "", 0)

	err := New("/repo").Prune(context.Background(), "abcdef", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hg", "-R", "/repo", "prune", "--ref", "abcdef"}, gotArgs)
}
