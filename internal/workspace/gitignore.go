package workspace

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitignore entries this tool's artifacts need, with explanations kept in
// the exclude file for whoever reads it later.
type ignoreEntry struct {
	pattern string
	comment string
}

// EnsureGitignoreEntries makes sure generated artifacts are ignored when
// the workspace sits (possibly nested) inside a git repository. Entries go
// into .git/info/exclude rather than a checked-in .gitignore, so ignoring
// works without requiring users to commit anything.
func EnsureGitignoreEntries(root string) error {
	// git-common-dir rather than a .git directory probe: the workspace may
	// be nested in the repository or live in a worktree, and there is just
	// one info/exclude in the common dir.
	gitDir, err := gitOutput(root, "rev-parse", "--git-common-dir")
	if err != nil {
		// Not inside a git repository; nothing to do.
		return nil
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}

	prefix, err := gitOutput(root, "rev-parse", "--show-prefix")
	if err != nil {
		return fmt.Errorf("failed to resolve workspace position in repository: %w", err)
	}

	entries := []ignoreEntry{
		{"/" + prefix + "external", "# Ignore the external link added by bazel-compdb. It differs between platforms, so it shouldn't be checked in."},
		{"/" + prefix + "bazel-*", "# Ignore links to Bazel's output. The * covers renamed clone directories; no trailing / because these are symlinks."},
		{"/" + prefix + "compile_commands.json", "# Ignore generated compilation databases."},
		{".cache/", "# Ignore the directory in which clangd stores its local index."},
	}

	// Some older git versions don't auto-create .git/info/.
	infoDir := filepath.Join(gitDir, "info")
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", infoDir, err)
	}
	excludePath := filepath.Join(infoDir, "exclude")

	existing, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", excludePath, err)
	}

	lines := make(map[string]bool)
	var lastLine string
	for _, line := range strings.Split(string(existing), "\n") {
		trimmed := strings.TrimRight(line, " \t\r")
		lines[trimmed] = true
		if trimmed != "" {
			lastLine = trimmed
		}
	}

	var missing []ignoreEntry
	for _, e := range entries {
		if !lines[e.pattern] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", excludePath, err)
	}
	defer f.Close()

	var b strings.Builder
	if len(existing) > 0 && lastLine != "" && !strings.HasSuffix(string(existing), "\n\n") {
		b.WriteString("\n")
	}
	b.WriteString("### Automatically added by bazel-compdb\n")
	for _, e := range missing {
		b.WriteString(e.comment + "\n")
		b.WriteString(e.pattern + "\n")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", excludePath, err)
	}

	log.Println("Added entries to .git/info/exclude to gitignore generated output.")
	return nil
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
