package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rewind/internal/buildpipeline"
	"rewind/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the build output directory",
	Long:  "Remove the output and scratch directories named in rewind.toml, and optionally the compile cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache", false, "also drop the compile cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) > 0 && args[0] != "" {
		startDir = args[0]
	}
	dropCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	manifest, ok, err := project.LoadManifest(startDir)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(project.NoManifestMessage)
	}

	out := cmd.OutOrStdout()
	for _, dir := range []string{manifest.OutputRoot(), manifest.ScratchRoot()} {
		if dir == "" {
			continue
		}
		removed, err := removeDir(dir)
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintf(out, "removed %s\n", formatPathForOutput(manifest.Root, dir))
		}
	}
	if dropCache {
		cache, err := buildpipeline.OpenCache("rewind")
		if err != nil {
			return fmt.Errorf("failed to open compile cache: %w", err)
		}
		if err := cache.DropAll(); err != nil {
			return fmt.Errorf("failed to clear compile cache: %w", err)
		}
		fmt.Fprintf(out, "cleared cache %s\n", cache.Dir())
	}
	return nil
}

// removeDir deletes dir and reports whether anything was there.
func removeDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%q is not a directory", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	return true, nil
}
