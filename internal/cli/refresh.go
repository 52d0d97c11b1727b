package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/bazel-compdb/internal/bazel"
	"github.com/mvp-joe/bazel-compdb/internal/canonical"
	"github.com/mvp-joe/bazel-compdb/internal/compiledb"
	"github.com/mvp-joe/bazel-compdb/internal/config"
	"github.com/mvp-joe/bazel-compdb/internal/headers"
	"github.com/mvp-joe/bazel-compdb/internal/watch"
	"github.com/mvp-joe/bazel-compdb/internal/workspace"
)

var (
	refreshQuietFlag bool
	refreshWatchFlag bool
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [target patterns]",
	Short: "Regenerate compile_commands.json from Bazel's action graph",
	Long: `Refresh queries Bazel for the compile actions of the configured targets,
rewrites them into directly runnable compiler commands, associates headers
with the commands that compile them, and writes compile_commands.json.

No build is required: commands come from Bazel's action graph. Files that
Bazel generates (protobuf headers and the like) only resolve after a build
has produced them.

Targets normally come from .compdb/config.yml. Target patterns given on
the command line override the configured list for this run; flags after
-- are passed to bazel verbatim.

Examples:
  # Refresh using configured targets (default //...)
  bazel-compdb refresh

  # Refresh one application and everything it depends on
  bazel-compdb refresh //app:main

  # Pass extra flags through to bazel
  bazel-compdb refresh //app:main -- --config=arm64

  # Re-run automatically when BUILD files change
  bazel-compdb refresh --watch
`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVarP(&refreshQuietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	refreshCmd.Flags().BoolVarP(&refreshWatchFlag, "watch", "w", false, "Watch build files and refresh on change")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling refresh...")
		cancel()
	}()

	// Targets before --, bazel passthrough flags after it.
	targetArgs := args
	var extraArgs []string
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		targetArgs = args[:at]
		extraArgs = args[at:]
	}

	ws, err := bazel.DiscoverWorkspace(ctx, "bazel")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ws.Root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(targetArgs) > 0 {
		cfg.Targets = nil
		for _, t := range targetArgs {
			cfg.Targets = append(cfg.Targets, config.TargetSpec{Target: t})
		}
	}

	outputDir := ws.Root
	if cfg.Output.Directory != "" {
		outputDir = cfg.Output.Directory
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(ws.Root, outputDir)
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	release, err := compiledb.AcquireLock(outputDir)
	if err != nil {
		return err
	}
	defer release()

	r := &refresher{
		ws:        ws,
		cfg:       cfg,
		outputDir: outputDir,
		extraArgs: extraArgs,
		quiet:     refreshQuietFlag,
	}

	if err := r.run(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("refresh cancelled")
		}
		return err
	}

	if !refreshWatchFlag {
		return nil
	}

	w, err := watch.New(ws.Root)
	if err != nil {
		return fmt.Errorf("failed to start build-file watcher: %w", err)
	}
	defer w.Stop()

	if !r.quiet {
		log.Println("Watching build files; press Ctrl+C to stop.")
	}
	if err := w.Start(ctx, func(files []string) {
		if !r.quiet {
			log.Printf("Build files changed (%d); refreshing...", len(files))
		}
		if err := r.run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Refresh failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}

	<-ctx.Done()
	return nil
}

func loadConfig(workspaceRoot string) (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.NewFileLoader(cfgFile).Load()
		if err != nil {
			return nil, err
		}
		if len(cfg.Targets) == 0 {
			cfg.Targets = config.Default().Targets
		}
		return cfg, nil
	}
	return config.LoadFromDir(workspaceRoot)
}

// refresher holds everything one refresh pass needs, so watch mode can
// re-run passes without re-resolving the workspace.
type refresher struct {
	ws        *bazel.Workspace
	cfg       *config.Config
	outputDir string
	extraArgs []string
	quiet     bool
}

func (r *refresher) run(ctx context.Context) error {
	cfg := r.cfg

	// Workspace upkeep first: extracted commands reference external/... and
	// generated files need to stay out of version control.
	if err := workspace.EnsureExternalLink(r.ws.Root); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := workspace.EnsureGitignoreEntries(r.ws.Root); err != nil {
		log.Printf("Warning: %v", err)
	}

	client := bazel.NewClient(r.ws.Root, cfg.Bazel.Path, time.Duration(cfg.Bazel.QueryTimeoutSec)*time.Second)

	if !r.quiet {
		log.Printf("Querying compile actions for %d target pattern(s)...", len(cfg.Targets))
	}
	actions, err := bazel.Ingest(ctx, client, cfg.Targets, cfg.Output.ExcludeExternalSources, r.extraArgs, cfg.Bazel.MaxParallelQueries)
	if err != nil {
		return err
	}

	canon := canonical.New(r.ws, canonical.WithMSVCIncludePaths(cfg.Windows.DefaultIncludePaths))

	var cmds []*canonical.Command
	for _, action := range actions {
		command, err := canon.Canonicalize(action)
		if err != nil {
			// Unrecognized wrappers cost one entry, not the run.
			var unwrapErr *canonical.UnwrapError
			if errors.As(err, &unwrapErr) {
				log.Printf("Warning: skipping action for %s: %v", action.TargetLabel, err)
				continue
			}
			return err
		}
		if command != nil {
			cmds = append(cmds, command)
		}
	}
	if !r.quiet {
		log.Printf("Canonicalized %d compile command(s)", len(cmds))
	}

	if missing := missingSources(cmds); len(missing) > 0 {
		log.Printf("Warning: %d compiled source file(s) don't exist, e.g. %s. "+
			"If Bazel generates them, run a build first so their commands resolve.", len(missing), missing[0])
	}

	filter, err := compiledb.NewFilter(r.ws.Root, cfg)
	if err != nil {
		return err
	}

	var idx *headers.Index
	if scanCmds := headerScanCommands(cmds, cfg); len(scanCmds) > 0 {
		idx = headers.Build(ctx, scanCmds, r.strategy(), headers.Options{
			Workers:    runtime.NumCPU(),
			KeepHeader: headerPrefilter(filter, cfg),
			Progress:   newRefreshProgress(r.quiet),
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	artifacts := compiledb.NewAssembler(filter).Assemble(cmds, idx)

	writer, err := compiledb.NewWriter(r.outputDir)
	if err != nil {
		return err
	}
	if err := writer.WriteAll(artifacts); err != nil {
		return err
	}

	if !r.quiet {
		total := 0
		for _, records := range artifacts {
			total += len(records)
		}
		log.Printf("Wrote %d entries across %d database file(s) to %s", total, len(artifacts), r.outputDir)
	}
	return nil
}

func (r *refresher) strategy() headers.Strategy {
	scan := &headers.ScanStrategy{
		Timeout:          time.Duration(r.cfg.Bazel.ScanTimeoutSec) * time.Second,
		MSVCIncludePaths: r.cfg.Windows.DefaultIncludePaths,
	}
	if r.cfg.Headers.Strategy == config.StrategyScan {
		return scan
	}
	// Depfiles when the build has produced them, scan for the rest.
	return &headers.DepfileStrategy{Fallback: scan}
}

// headerScanCommands picks the commands worth running header discovery
// for. With header records excluded outright there is nothing to discover,
// and external commands can't reach first-party headers, so in "external"
// mode scanning them would only produce discards.
func headerScanCommands(cmds []*canonical.Command, cfg *config.Config) []*canonical.Command {
	switch cfg.Headers.Exclude {
	case config.ExcludeHeadersAll:
		return nil
	case config.ExcludeHeadersExternal:
		kept := make([]*canonical.Command, 0, len(cmds))
		for _, cmd := range cmds {
			if !cmd.External {
				kept = append(kept, cmd)
			}
		}
		return kept
	default:
		return cmds
	}
}

// missingSources returns the source files referenced by commands that don't
// exist on disk, lexically sorted. Bazel-generated sources (protobuf
// output and the like) only appear after a build has produced them.
func missingSources(cmds []*canonical.Command) []string {
	var missing []string
	for _, cmd := range cmds {
		path := cmd.SourceFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cmd.Directory, path)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, cmd.SourceFile)
		}
	}
	sort.Strings(missing)
	return missing
}

// headerPrefilter drops headers during association that no filter setting
// could ever let through, so they don't occupy association slots.
func headerPrefilter(filter *compiledb.Filter, cfg *config.Config) func(string) bool {
	switch cfg.Headers.Exclude {
	case config.ExcludeHeadersAll:
		return func(string) bool { return false }
	case config.ExcludeHeadersExternal:
		return filter.FirstParty
	default:
		return nil
	}
}
