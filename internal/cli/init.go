package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/bazel-compdb/internal/config"
)

var initForceFlag bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .compdb/config.yml",
	Long: `Init writes a configuration file with the defaults spelled out, so the
available settings are discoverable without reading documentation.

The file is written to .compdb/config.yml in the current workspace. Every
setting can also be overridden with COMPDB_* environment variables.

Examples:
  # Create .compdb/config.yml in the current workspace
  bazel-compdb init

  # Overwrite an existing configuration
  bazel-compdb init --force
`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	rootDir := os.Getenv("BUILD_WORKSPACE_DIRECTORY")
	if rootDir == "" {
		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	configDir := filepath.Join(rootDir, ".compdb")
	configPath := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(configPath); err == nil && !initForceFlag {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", configDir, err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	content := append([]byte(defaultConfigHeader), data...)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	fmt.Printf("✓ Wrote %s\n", configPath)
	fmt.Println("Edit the target list, then run 'bazel-compdb refresh'.")
	return nil
}

const defaultConfigHeader = `# bazel-compdb configuration.
# Targets listed here have their compile commands extracted on refresh.
# Settings can be overridden per run with COMPDB_* environment variables,
# e.g. COMPDB_HEADERS_STRATEGY=scan.
`
