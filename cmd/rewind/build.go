// Package main implements the rewind CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rewind/internal/buildpipeline"
	"rewind/internal/diag"
	"rewind/internal/project"
	"rewind/internal/sourcemap"
	"rewind/internal/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Compile the project described by rewind.toml",
	Long: `Compile every source selected by rewind.toml, stage its libraries, and
print compiler and lint reports against original source paths.`,
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().Int("jobs", 0, "max parallel compiler processes (0=manifest or auto)")
	buildCmd.Flags().Int("banner", -1, "report banner width in cells (0 disables, -1 uses the manifest)")
	buildCmd.Flags().String("lint-results", "", "lint result file (JSON or JSONC) to report before compiling")
	buildCmd.Flags().String("diagnostics-json", "", "also write every diagnostic to this file as JSON")
	buildCmd.Flags().Bool("cache", false, "reuse compiler output for unchanged files (overrides the manifest)")
	buildCmd.Flags().Bool("clear-cache", false, "drop the compile cache before building")
	buildCmd.Flags().Bool("keep-tmp", false, "preserve the scratch directory")
	buildCmd.Flags().Bool("keep-map-file", false, "keep the \"file\" field of source maps")
	buildCmd.Flags().Bool("print-commands", false, "print compiler command lines")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().Bool("watch", false, "rebuild when project files change")
}

func readBuildOptions(cmd *cobra.Command) (buildOptions, error) {
	var opts buildOptions
	var err error
	flags := cmd.Flags()
	if opts.jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, err
	}
	if opts.jobs < 0 {
		return opts, fmt.Errorf("--jobs must not be negative")
	}
	if opts.banner, err = flags.GetInt("banner"); err != nil {
		return opts, err
	}
	if opts.lintResults, err = flags.GetString("lint-results"); err != nil {
		return opts, err
	}
	if opts.diagJSON, err = flags.GetString("diagnostics-json"); err != nil {
		return opts, err
	}
	if flags.Changed("cache") {
		cache, cacheErr := flags.GetBool("cache")
		if cacheErr != nil {
			return opts, cacheErr
		}
		opts.cache = &cache
	}
	if opts.clearCache, err = flags.GetBool("clear-cache"); err != nil {
		return opts, err
	}
	if opts.keepTmp, err = flags.GetBool("keep-tmp"); err != nil {
		return opts, err
	}
	if opts.keepMapFile, err = flags.GetBool("keep-map-file"); err != nil {
		return opts, err
	}
	if opts.printCommands, err = flags.GetBool("print-commands"); err != nil {
		return opts, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return opts, err
	}
	if opts.ui, err = parseToggle("ui", uiValue); err != nil {
		return opts, err
	}
	if opts.watch, err = flags.GetBool("watch"); err != nil {
		return opts, err
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return opts, nil
}

func buildExecution(cmd *cobra.Command, args []string) error {
	opts, err := readBuildOptions(cmd)
	if err != nil {
		return err
	}
	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	manifest, ok, err := project.LoadManifest(startDir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(project.NoManifestMessage)
	}
	cache, err := openBuildCache(manifest, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.watch {
		return watchBuild(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), manifest, opts, cache)
	}
	return buildOnce(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), manifest, opts, cache)
}

// errBuildFailed is returned when the pipeline ran but some files did not compile.
type errBuildFailed struct{ failures int }

func (e errBuildFailed) Error() string {
	if e.failures == 1 {
		return "1 file failed to compile"
	}
	return fmt.Sprintf("%d files failed to compile", e.failures)
}

func buildOnce(ctx context.Context, stdout, stderr io.Writer, m *project.Manifest, opts buildOptions, cache *buildpipeline.Cache) error {
	req, labels, err := newBuildRequest(m, opts, cache, stdout)
	if err != nil {
		return err
	}

	var res buildpipeline.BuildResult
	if !opts.watch && progressView(opts.ui, opts.quiet) && len(labels) > 0 {
		res, err = runBuildWithUI(ctx, "rewind build", labels, req)
	} else {
		res, err = buildpipeline.Build(ctx, req)
	}

	if opts.diagJSON != "" && res.Diagnostics != nil {
		if writeErr := writeDiagnosticsJSON(opts.diagJSON, res.Diagnostics); writeErr != nil {
			fmt.Fprintf(stderr, "warning: %v\n", writeErr)
		}
	}

	var mapErr *sourcemap.MapParseError
	if err != nil && errors.As(err, &mapErr) {
		for _, me := range res.MapErrors {
			fmt.Fprintf(stderr, "warning: %v\n", me)
		}
		err = nil
	}
	if err != nil {
		dumpTraceRing(ctx, stderr)
		return err
	}

	if !opts.quiet {
		if opts.keepTmp || m.Config.Build.KeepTmp {
			scratch := req.ScratchRoot
			if scratch == "" {
				scratch = filepath.Join(req.OutputRoot, ".tmp")
			}
			fmt.Fprintf(stdout, "tmp dir: %s\n", formatPathForOutput(m.Root, scratch))
		}
		if err := printStageTimings(stdout, res.Phases); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "built %d scripts into %s\n", len(res.Scripts()), formatPathForOutput(m.Root, req.OutputRoot))
	}
	if opts.timings {
		fmt.Fprint(stdout, res.Phases.Summary())
	}
	if res.Failures > 0 {
		dumpTraceRing(ctx, stderr)
		return errBuildFailed{failures: res.Failures}
	}
	return nil
}

// watchBuild builds once and then again after every batch of changes. Build
// errors are printed and the watch continues; each rebuild re-reads the
// manifest so edits to it take effect.
func watchBuild(ctx context.Context, stdout, stderr io.Writer, m *project.Manifest, opts buildOptions, cache *buildpipeline.Cache) error {
	if err := buildOnce(ctx, stdout, stderr, m, opts, cache); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}

	w, err := watch.New(watch.Options{
		Dirs: m.WatchDirs(),
		Skip: []string{m.OutputRoot(), m.ScratchRoot(), cache.Dir()},
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()
	fmt.Fprintf(stdout, "watching %s for changes (ctrl+c to stop)\n", m.Root)

	err = w.Run(ctx, func(ctx context.Context, batch watch.Batch) error {
		fmt.Fprintf(stdout, "\n%d changed, rebuilding\n", len(batch.Paths))
		next, readErr := project.ReadManifest(m.Path)
		if readErr != nil {
			fmt.Fprintf(stderr, "error: %v\n", readErr)
			return nil
		}
		m = next
		if buildErr := buildOnce(ctx, stdout, stderr, m, opts, cache); buildErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(stderr, "error: %v\n", buildErr)
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writeDiagnosticsJSON(path string, bag *diag.Bag) error {
	f, err := os.Create(path) // #nosec G304 -- user-selected output
	if err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}
	if err := diag.WriteJSON(f, bag); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}
	return f.Close()
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
