// Package cli wires the extraction pipeline into the bazel-compdb command
// tree.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bazel-compdb",
	Short: "Extract compile_commands.json from Bazel C/C++ builds",
	Long: `bazel-compdb queries Bazel's action graph and turns the compile actions
into a compile_commands.json usable by clangd, clang-tidy, and other
compilation-database consumers, without running a build.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Diagnostics go to stderr so stdout stays clean for tooling.
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <workspace>/.compdb/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
