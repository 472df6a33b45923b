package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quidome/photo-organizer-go/pkg/createdat"
	"github.com/quidome/photo-organizer-go/pkg/move"
	"github.com/quidome/photo-organizer-go/pkg/reconcile"
	"github.com/quidome/photo-organizer-go/pkg/scan"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

type options struct {
	verbose bool
	dryRun  bool
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "photo-organizer",
		Short:   "A CLI tool to file photos and videos by creation time",
		Long:    "Photo Organizer moves photos and videos into a date-structured collection, using the creation time embedded in each file's native metadata (EXIF, PNG tIME, RIFF IDIT, MP4 movie headers).",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("Photo Organizer CLI")
			cmd.Printf("Version: %s\n", version)
			cmd.Println("")
			cmd.Println("Use --help to see available commands and options")
		},
	}

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "perform a dry run without making changes")

	rootCmd.AddCommand(newOrganizeCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

func newOrganizeCmd(opts *options) *cobra.Command {
	var jobs int

	organizeCmd := &cobra.Command{
		Use:   "organize [collection] [source...]",
		Short: "Move media files into a date-organized collection",
		Long: "Move media files into the collection, organized by year and month of creation. " +
			"The collection itself is rescanned first so re-running is idempotent; files from " +
			"any additional source paths are merged in. Duplicate content is skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The collection is also the first source to merge.
			return runOrganize(cmd, args[0], args, opts, jobs)
		},
	}

	organizeCmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "number of files to attribute concurrently")

	return organizeCmd
}

func runOrganize(cmd *cobra.Command, collection string, sourceRoots []string, opts *options, jobs int) error {
	for _, root := range sourceRoots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("%s is not a valid path", root)
		}
	}

	index := reconcile.NewIndex()
	for _, root := range sourceRoots {
		records, err := scan.ScanRecords(os.DirFS(root), ".", scan.DefaultOptions())
		if err != nil {
			return err
		}
		logrus.Debugf("scanned %s: %d media files", root, len(records))

		sources := attribute(root, records, jobs)

		decisions, err := reconcile.Decide(collection, sources, index)
		if err != nil {
			return err
		}

		for _, result := range move.Execute(decisions, move.Options{DryRun: opts.dryRun}) {
			d := result.Decision
			switch {
			case result.Error != nil:
				logrus.Errorf("failed to move %s: %v", d.SourcePath, result.Error)
			case d.Action == reconcile.ActionMove:
				cmd.Printf("%s -> %s\n", d.SourcePath, d.DestinationPath)
			case d.Action == reconcile.ActionSkippedDuplicate:
				logrus.Debugf("skipping %s: duplicate of %s", d.SourcePath, d.DuplicateOf)
			case d.Action == reconcile.ActionSkippedInPlace:
				logrus.Debugf("skipping %s: already in place", d.SourcePath)
			}
		}
	}

	if opts.dryRun {
		return nil
	}
	removed, err := move.RemoveEmptyDirs(collection)
	if err != nil {
		return err
	}
	for _, dir := range removed {
		logrus.Infof("removed empty folder %s", dir)
	}
	return nil
}

// attribute determines a creation timestamp for every scanned record. Each
// file's decode owns its own cursor and scratch state, so files are
// attributed concurrently.
func attribute(root string, records []scan.Record, jobs int) []reconcile.Source {
	if jobs < 1 {
		jobs = 1
	}
	fsys := os.DirFS(root)
	sources := make([]reconcile.Source, len(records))

	var wg sync.WaitGroup
	sem := make(chan struct{}, jobs)
	for i, record := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, record scan.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			when := record.ModTime
			if result, err := createdat.Determine(fsys, record.Path, createdat.Options{}); err == nil && !result.CreatedAt.IsZero() {
				when = result.CreatedAt
			}
			sources[i] = reconcile.Source{
				Path:      filepath.Join(root, filepath.FromSlash(record.Path)),
				CreatedAt: when,
			}
		}(i, record)
	}
	wg.Wait()
	return sources
}

func newScanCmd(opts *options) *cobra.Command {
	var maxDepth int

	scanCmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory for media files",
		Long:  "Scan a directory and print all media files found (relative to the scan root).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory := args[0]

			scanOpts := scan.DefaultOptions()
			scanOpts.MaxDepth = maxDepth

			matches, err := scan.Scan(os.DirFS(directory), ".", scanOpts)
			if err != nil {
				return err
			}

			for _, match := range matches {
				cmd.Println(match)
			}

			if opts.verbose {
				cmd.PrintErrf("found %d media files\n", len(matches))
			}

			return nil
		},
	}

	scanCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "maximum recursion depth (0 = no recursion)")

	return scanCmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file...]",
		Short: "Show the attributed creation time for media files",
		Long:  "Show every creation timestamp considered for each file (filename, embedded metadata, mtime) and which one wins.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				dir := filepath.Dir(path)
				base := filepath.Base(path)

				detailed, err := createdat.DetermineDetailed(os.DirFS(dir), base, createdat.Options{})
				if err != nil {
					return fmt.Errorf("inspect %s: %w", path, err)
				}

				cmd.Printf("%s\n", path)
				cmd.Printf("  best:     %s (%s)\n", formatTime(detailed.Best.CreatedAt), detailed.Best.Source)
				cmd.Printf("  filename: %s\n", formatTime(detailed.Filename))
				cmd.Printf("  metadata: %s\n", formatTime(detailed.Metadata))
				cmd.Printf("  mtime:    %s\n", formatTime(detailed.Filestat))
			}
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
