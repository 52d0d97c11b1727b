package bazel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/bazel-compdb/internal/config"
)

// Test Plan for ingestion:
// - Results are merged in configuration order regardless of completion order
// - Group names are carried onto every action of their spec
// - A failed query aborts ingestion with a *QueryError
// - Errors are surfaced in configuration order
// - Parallelism never exceeds the configured bound

// routingRunner serves a canned aquery result per target pattern.
type routingRunner struct {
	mu       sync.Mutex
	byTarget map[string]string // target pattern substring -> stdout
	errFor   string            // target pattern substring that fails
	inflight int
	peak     int
}

func (r *routingRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.peak {
		r.peak = r.inflight
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.inflight--
		r.mu.Unlock()
	}()

	expr := args[1]
	if r.errFor != "" && strings.Contains(expr, r.errFor) {
		return nil, nil, fmt.Errorf("exit status 1")
	}
	for target, out := range r.byTarget {
		if strings.Contains(expr, target) {
			return []byte(out), nil, nil
		}
	}
	return []byte("{}"), nil, nil
}

func aqueryFor(label, source string) string {
	return fmt.Sprintf(`{
		"actions": [{"targetId": 1, "mnemonic": "CppCompile", "arguments": ["gcc", "-c", "%s"]}],
		"targets": [{"id": 1, "label": "%s"}]
	}`, source, label)
}

func ingestClient(runner Runner) *Client {
	c := NewClient("/ws", "bazel", 0)
	c.runner = runner
	return c
}

func TestIngest_MergesInConfigOrder(t *testing.T) {
	runner := &routingRunner{byTarget: map[string]string{
		"//app:main": aqueryFor("//app:main", "app/main.cc"),
		"//lib/...":  aqueryFor("//lib:lib", "lib/lib.cc"),
	}}
	specs := []config.TargetSpec{
		{Target: "//app:main", Group: "app"},
		{Target: "//lib/..."},
	}

	actions, err := Ingest(context.Background(), ingestClient(runner), specs, false, nil, 4)
	require.NoError(t, err)

	require.Len(t, actions, 2)
	assert.Equal(t, "//app:main", actions[0].TargetLabel)
	assert.Equal(t, "app", actions[0].Group)
	assert.Equal(t, "//lib:lib", actions[1].TargetLabel)
	assert.Equal(t, "", actions[1].Group)
}

func TestIngest_QueryFailureAborts(t *testing.T) {
	runner := &routingRunner{
		byTarget: map[string]string{"//ok/...": aqueryFor("//ok:ok", "ok/ok.cc")},
		errFor:   "//bad/...",
	}
	specs := []config.TargetSpec{
		{Target: "//ok/..."},
		{Target: "//bad/..."},
	}

	_, err := Ingest(context.Background(), ingestClient(runner), specs, false, nil, 2)
	require.Error(t, err)

	var queryErr *QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "//bad/...", queryErr.Target)
}

func TestIngest_BoundsParallelism(t *testing.T) {
	runner := &routingRunner{byTarget: map[string]string{}}
	var specs []config.TargetSpec
	for i := 0; i < 16; i++ {
		specs = append(specs, config.TargetSpec{Target: fmt.Sprintf("//pkg%d/...", i)})
	}

	_, err := Ingest(context.Background(), ingestClient(runner), specs, false, nil, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, runner.peak, 2)
}

func TestIngest_NoSpecs(t *testing.T) {
	actions, err := Ingest(context.Background(), ingestClient(&routingRunner{}), nil, false, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
