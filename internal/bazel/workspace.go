package bazel

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Workspace describes the durable and transient roots of a Bazel workspace.
type Workspace struct {
	// Root is the stable workspace tree; all output paths resolve under it.
	Root string
	// ExecutionRoot is Bazel's transient execution sandbox. It is
	// reconfigured between builds and must never appear in durable output.
	ExecutionRoot string
	// OutputBase holds fetched external repositories under
	// <output_base>/external.
	OutputBase string
}

// DiscoverWorkspace locates the workspace the tool was invoked in.
// Under `bazel run`, BUILD_WORKSPACE_DIRECTORY points at the root directly;
// otherwise `bazel info` is consulted from the current directory.
func DiscoverWorkspace(ctx context.Context, bazelPath string) (*Workspace, error) {
	runner := execRunner{}

	root := os.Getenv("BUILD_WORKSPACE_DIRECTORY")
	if root == "" {
		var err error
		root, err = bazelInfo(ctx, runner, "", bazelPath, "workspace")
		if err != nil {
			return nil, fmt.Errorf("failed to locate workspace root (run from inside a Bazel workspace, or via bazel run): %w", err)
		}
	}

	execRoot, err := bazelInfo(ctx, runner, root, bazelPath, "execution_root")
	if err != nil {
		return nil, fmt.Errorf("failed to query execution root: %w", err)
	}
	outputBase, err := bazelInfo(ctx, runner, root, bazelPath, "output_base")
	if err != nil {
		return nil, fmt.Errorf("failed to query output base: %w", err)
	}

	return &Workspace{
		Root:          root,
		ExecutionRoot: execRoot,
		OutputBase:    outputBase,
	}, nil
}

func bazelInfo(ctx context.Context, runner Runner, dir, bazelPath, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	stdout, stderr, err := runner.Run(ctx, dir, bazelPath, "info", key)
	if err != nil {
		return "", fmt.Errorf("bazel info %s: %w (stderr: %s)", key, err, strings.TrimSpace(string(stderr)))
	}
	value := strings.TrimSpace(string(stdout))
	if value == "" {
		return "", fmt.Errorf("bazel info %s returned nothing", key)
	}
	return value, nil
}
