package bazel

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the aquery client:
// - CompileActions builds the expected aquery command line
// - Configured flags are shell-split and appended, then extra args
// - excludeExternal wraps the target statement in a label filter
// - A failing bazel invocation surfaces as *QueryError
// - Unparseable aquery output surfaces as *QueryError
// - The missing-targets noise warning is filtered from relayed stderr
// - Other stderr lines are relayed

// fakeRunner records the invocation and plays back canned output.
type fakeRunner struct {
	gotDir  string
	gotName string
	gotArgs []string

	stdout []byte
	stderr []byte
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	f.gotDir = dir
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

func newTestClient(runner Runner) *Client {
	c := NewClient("/ws", "bazel", time.Minute)
	c.runner = runner
	return c
}

func TestCompileActions_CommandLine(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(sampleAquery)}
	c := newTestClient(runner)

	actions, err := c.CompileActions(context.Background(), "//app/...", "--config=arm64 --copt='-O2'", "", false, []string{"--keep_going"})
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "/ws", runner.gotDir)
	assert.Equal(t, "bazel", runner.gotName)
	assert.Equal(t, []string{
		"aquery",
		"mnemonic('(Objc|Cpp)Compile',deps(//app/...))",
		"--output=jsonproto",
		"--include_artifacts=false",
		"--ui_event_filters=-info",
		"--noshow_progress",
		"--features=-compiler_param_file",
		"--features=-layering_check",
		"--config=arm64",
		"--copt=-O2",
		"--keep_going",
	}, runner.gotArgs)
}

func TestCompileActions_ExcludeExternal(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(sampleAquery)}
	c := newTestClient(runner)

	_, err := c.CompileActions(context.Background(), "//...", "", "", true, nil)
	require.NoError(t, err)

	assert.Equal(t, "mnemonic('(Objc|Cpp)Compile',filter('^(//|@//)',deps(//...)))", runner.gotArgs[1])
}

func TestCompileActions_BazelFailure(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("exit status 2")}
	c := newTestClient(runner)

	_, err := c.CompileActions(context.Background(), "//broken:target", "", "", false, nil)
	require.Error(t, err)

	var queryErr *QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "//broken:target", queryErr.Target)
}

func TestCompileActions_UnparseableOutput(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("INFO: not json at all")}
	c := newTestClient(runner)

	_, err := c.CompileActions(context.Background(), "//...", "", "", false, nil)
	var queryErr *QueryError
	require.ErrorAs(t, err, &queryErr)
}

func TestCompileActions_BadFlagString(t *testing.T) {
	c := newTestClient(&fakeRunner{})

	_, err := c.CompileActions(context.Background(), "//...", "--copt='unterminated", "", false, nil)
	var queryErr *QueryError
	require.ErrorAs(t, err, &queryErr)
}

func TestLogFilteredStderr_SuppressesMissingTargetsNoise(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	logFilteredStderr([]byte("WARNING: Targets were missing from graph: //gone:away\n"))
	assert.Empty(t, buf.String())

	buf.Reset()
	logFilteredStderr([]byte("ERROR: something real went wrong\n"))
	assert.Contains(t, buf.String(), "something real went wrong")
}

func TestMissingTargetsWarningPattern(t *testing.T) {
	t.Parallel()

	assert.True(t, missingTargetsWarning.MatchString("WARNING: Targets were missing from graph: //a"))
	// With --show_timestamps and color codes.
	assert.True(t, missingTargetsWarning.MatchString("(12:34:56) \x1b[35mWARNING: \x1b[0mTargets were missing from graph: //a"))
	assert.False(t, missingTargetsWarning.MatchString("WARNING: some other warning"))
}
