package bazel

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/mvp-joe/bazel-compdb/internal/shellwords"
)

// QueryError reports a failed or unparseable aquery invocation. It is fatal:
// a partial action graph would silently yield a misleadingly incomplete
// database, so the run aborts instead.
type QueryError struct {
	Target string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("action query for %q failed: %v", e.Target, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Runner executes an external command and returns its captured output.
// It exists so tests can substitute a fake bazel.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client invokes bazel's action-query facility for a workspace.
type Client struct {
	workspaceDir string
	bazelPath    string
	queryTimeout time.Duration
	runner       Runner
}

// NewClient creates a query client rooted at workspaceDir.
func NewClient(workspaceDir, bazelPath string, queryTimeout time.Duration) *Client {
	return &Client{
		workspaceDir: workspaceDir,
		bazelPath:    bazelPath,
		queryTimeout: queryTimeout,
		runner:       execRunner{},
	}
}

// aquery warns about graph targets that are missing for unrelated reasons;
// they're never ones we want to introspect, so the noise is suppressed.
// Tracking issue https://github.com/bazelbuild/bazel/issues/13007
// The pattern tolerates --show_timestamps and --color=yes prefixes.
var missingTargetsWarning = regexp.MustCompile(`^(\(\d+:\d+:\d+\) )?(\x1b\[[\d;]+m)?WARNING: (\x1b\[[\d;]+m)?Targets were missing from graph:`)

// looksLikeTarget matches flag strings that are probably misplaced targets.
var looksLikeTarget = regexp.MustCompile(`^-?(@|:|//)`)

// CompileActions runs one aquery for the given target pattern plus extra
// flags and returns its compile-family actions. extraArgs are appended to
// the bazel command line verbatim.
func (c *Client) CompileActions(ctx context.Context, target, flags, group string, excludeExternal bool, extraArgs []string) ([]Action, error) {
	additionalFlags, err := shellwords.Split(flags)
	if err != nil {
		return nil, &QueryError{Target: target, Err: fmt.Errorf("failed to split extra flags: %w", err)}
	}
	additionalFlags = append(additionalFlags, extraArgs...)

	warnAboutMisplacedArguments(target, additionalFlags)

	targetStatement := fmt.Sprintf("deps(%s)", target)
	if excludeExternal {
		// Have bazel prune external targets before they are even turned into
		// actions or serialized, which is much cheaper than filtering here.
		targetStatement = fmt.Sprintf("filter('^(//|@//)',%s)", targetStatement)
	}

	args := append([]string{
		"aquery",
		fmt.Sprintf("mnemonic('(Objc|Cpp)Compile',%s)", targetStatement),
		"--output=jsonproto",
		// Artifact lists are large and unused; dropping them dramatically
		// shrinks the aquery output.
		"--include_artifacts=false",
		"--ui_event_filters=-info",
		"--noshow_progress",
		// Param files would hide the compile arguments behind files that only
		// exist after a build, so they are disabled for the query.
		"--features=-compiler_param_file",
		// layering_check introduces dependence on generated module map files
		// that block header extraction before their generation.
		"--features=-layering_check",
	}, additionalFlags...)

	queryCtx := ctx
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	stdout, stderr, err := c.runner.Run(queryCtx, c.workspaceDir, c.bazelPath, args...)
	logFilteredStderr(stderr)
	if err != nil {
		return nil, &QueryError{Target: target, Err: fmt.Errorf("bazel aquery: %w", err)}
	}

	actions, skipped, err := parseActions(stdout, group)
	if err != nil {
		return nil, &QueryError{Target: target, Err: err}
	}
	if skipped > 0 {
		log.Printf("Skipped %d action(s) for %s with structurally unavailable commands", skipped, target)
	}
	if len(actions) == 0 {
		log.Printf("Warning: bazel lists no applicable compile commands for %s. If this is a header-only library, specify a test or binary target that compiles it.", target)
	}

	return actions, nil
}

// warnAboutMisplacedArguments surfaces the common configuration mixup of
// putting targets in the flags list or flags in the target string. Bazel
// would fail to parse shortly after with a less helpful message.
func warnAboutMisplacedArguments(target string, flags []string) {
	misplacedFlag := false
	for i, f := range flags {
		// Positional arguments after -- are all interpreted as target
		// patterns, so a -- anywhere but last is suspect.
		if f == "--" && i != len(flags)-1 {
			misplacedFlag = true
			break
		}
		if looksLikeTarget.MatchString(f) {
			misplacedFlag = true
			break
		}
	}
	if misplacedFlag {
		log.Printf("Warning: the flags configured for %s seem to contain targets. Add them as targets instead.", target)
	}

	if words, err := shellwords.Split(target); err == nil {
		for _, w := range words {
			if strings.HasPrefix(w, "--") {
				log.Printf("Warning: the target %q seems to contain flags. Add them as flags instead.", target)
				break
			}
		}
	}
}

// logFilteredStderr forwards aquery's stderr minus known-noise warnings.
func logFilteredStderr(stderr []byte) {
	if len(stderr) == 0 {
		return
	}
	var kept []string
	for _, line := range strings.Split(strings.TrimRight(string(stderr), "\n"), "\n") {
		if missingTargetsWarning.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) > 0 {
		log.Printf("bazel: %s", strings.Join(kept, "\n"))
	}
}
