package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/bazel-compdb/internal/bazel"
	"github.com/mvp-joe/bazel-compdb/internal/compiledb"
)

var cleanQuietFlag bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated compilation databases",
	Long: `Clean removes the compile_commands.json files this tool generated,
including the per-group compile_commands.<group>.json variants, along with
the refresh lock file.

The //external symlink and .git/info/exclude entries are left in place;
they are cheap and the next refresh would recreate them anyway.

Examples:
  # Remove generated databases from the workspace
  bazel-compdb clean
`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ws, err := bazel.DiscoverWorkspace(ctx, "bazel")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ws.Root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	outputDir := ws.Root
	if cfg.Output.Directory != "" {
		outputDir = cfg.Output.Directory
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(ws.Root, outputDir)
		}
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			if !cleanQuietFlag {
				fmt.Println("Nothing to clean")
			}
			return nil
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isGeneratedDatabase(entry.Name()) {
			continue
		}
		path := filepath.Join(outputDir, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}
	// Best effort; a concurrent refresh may hold it.
	os.Remove(filepath.Join(outputDir, ".compdb.lock"))

	if !cleanQuietFlag {
		if removed > 0 {
			fmt.Printf("✓ Removed %d database file(s) from %s\n", removed, outputDir)
		} else {
			fmt.Println("Nothing to clean")
		}
	}
	return nil
}

// isGeneratedDatabase matches compile_commands.json and its grouped
// compile_commands.<group>.json variants.
func isGeneratedDatabase(name string) bool {
	if name == compiledb.DefaultFileName {
		return true
	}
	return strings.HasPrefix(name, "compile_commands.") && strings.HasSuffix(name, ".json")
}
