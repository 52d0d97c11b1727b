// Package workspace maintains the conveniences that make extracted
// commands runnable from the workspace root: the //external symlink into
// Bazel's output base and git ignore entries for generated files.
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// EnsureExternalLink guarantees that //external points into Bazel's fullest
// set of external workspaces in the output base. Extracted commands
// reference external/... paths, which only resolve from the workspace root
// when this link exists.
func EnsureExternalLink(root string) error {
	source := filepath.Join(root, "external")

	if _, err := os.Lstat(filepath.Join(root, "bazel-out")); err != nil {
		return fmt.Errorf("//bazel-out is missing; remove --symlink_prefix and --experimental_convenience_symlinks so the workspace mirrors the compilation environment")
	}

	// Traverse into the output base via bazel-out, keeping the link
	// position-independent so the workspace can move without rerunning:
	// bazel-out -> <output_base>/execroot/<name>/bazel-out, so
	// bazel-out/../../../external is <output_base>/external.
	dest := filepath.Join("bazel-out", "..", "..", "..", "external")

	if current, err := os.Readlink(source); err == nil {
		if current == dest {
			return nil
		}
		log.Println("Warning: //external links to the wrong place; relinking...")
		if err := os.Remove(source); err != nil {
			return fmt.Errorf("failed to remove stale //external link: %w", err)
		}
	} else if _, statErr := os.Lstat(source); statErr == nil {
		// Exists but isn't a symlink. Never auto-delete: the user may have
		// something important there.
		return fmt.Errorf("//external already exists but is not a symlink; it is reserved by Bazel and needed by this tool, please rename or delete it and rerun")
	}

	if err := os.Symlink(dest, source); err != nil {
		return fmt.Errorf("failed to create //external link: %w", err)
	}
	log.Println("Added the //external workspace link: your source tree now mirrors the build sandbox's directory structure.")
	return nil
}
