// Command ptarcli archives a directory across N gzip-optional tar shards in
// parallel. Extraction (-x) is a stubbed external collaborator; only the
// command-line contract for it exists here.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JBlaschke/parallel-tar/internal/dispatch"
	"github.com/JBlaschke/parallel-tar/internal/indexcodec"
	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/pathmodel"
	"github.com/JBlaschke/parallel-tar/internal/ptconfig"
	"github.com/JBlaschke/parallel-tar/internal/pterrors"
	"github.com/JBlaschke/parallel-tar/internal/reporter"
	"github.com/JBlaschke/parallel-tar/internal/tarshard"
	"github.com/JBlaschke/parallel-tar/internal/tree"
	"github.com/JBlaschke/parallel-tar/internal/walker"
	"github.com/JBlaschke/parallel-tar/version"
)

var (
	create      bool
	extract     bool
	fromEtr     string
	gzipEnabled bool
	workers     int
	archiveName string
	excludes    []string
	ignoreFile  string
	followLinks bool
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:     "ptarcli <path>",
	Short:   "Archive a directory across N parallel tar shards",
	Args:    cobra.ExactArgs(1),
	Version: version.VERSION,
	RunE:    run,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("ptarcli %s (%s) %s\n", version.VERSION, version.COMMIT, version.DATE))
}

func init() {
	rootCmd.Flags().BoolVarP(&create, "create", "c", false, "create an archive")
	rootCmd.Flags().BoolVarP(&extract, "extract", "x", false, "extract an archive (not implemented)")
	rootCmd.MarkFlagsMutuallyExclusive("create", "extract")
	rootCmd.Flags().StringVarP(&fromEtr, "tree", "t", "", "use an existing .etr as the source of paths")
	rootCmd.Flags().BoolVarP(&gzipEnabled, "gzip", "z", false, "enable gzip compression per shard")
	rootCmd.Flags().IntVarP(&workers, "workers", "n", 0, "worker count (default: available parallelism)")
	rootCmd.Flags().StringVarP(&archiveName, "file", "f", "", "archive name; creates directory <name>/ with shards <name>.<i>.tar[.gz]")
	rootCmd.Flags().StringArrayVarP(&excludes, "exclude", "e", nil, "exclude pattern, gitignore-style (repeatable)")
	rootCmd.Flags().StringVarP(&ignoreFile, "ignore-file", "i", "", "custom ignore file, combined with --exclude and auto-loaded ignore files")
	rootCmd.Flags().BoolVar(&followLinks, "follow-symlinks", false, "follow symlinks instead of recording them as leaves")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default: $PTAR_LOG or warn)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "text|json")
	if err := rootCmd.MarkFlagRequired("file"); err != nil {
		panic(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Init(logger.ResolveLevel(logLevel, "warn"), logFormat, os.Stderr)

	if extract {
		return fmt.Errorf("%w: extraction is an external collaborator", pterrors.ErrNotImplemented)
	}

	resolved, err := pathmodel.Resolve(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", pterrors.ErrInputMissing, err)
	}

	var t *tree.Tree
	if fromEtr != "" {
		loaded, err := indexcodec.ReadFile(fromEtr)
		if err != nil {
			return fmt.Errorf("%w: %v", pterrors.ErrIndexCorrupt, err)
		}
		t = loaded
	} else {
		walkRoot := filepath.Join(resolved.WorkDir, resolved.ArchiveRoot)
		info, err := os.Stat(walkRoot)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", pterrors.ErrInputMissing, walkRoot)
		}
		opts, err := ptconfig.WalkerOptions(ptconfig.ExclusionOptions{
			Exclude:    excludes,
			IgnoreFile: ignoreFile,
			RootPath:   walkRoot,
		}, followLinks)
		if err != nil {
			return err
		}
		walked, warnings, err := walker.Walk(walkRoot, opts)
		if err != nil {
			return fmt.Errorf("%w: %v", pterrors.ErrInputMissing, err)
		}
		for _, w := range warnings {
			logger.Warn("ptarcli: "+w.Path, "error", w.Err)
		}
		t = walked
	}

	if err := os.MkdirAll(archiveName, 0o755); err != nil {
		return fmt.Errorf("%w: %v", pterrors.ErrWriteFailed, err)
	}
	entries, err := os.ReadDir(archiveName)
	if err != nil {
		return fmt.Errorf("%w: %v", pterrors.ErrWriteFailed, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", pterrors.ErrOutputExists, archiveName)
	}

	n := ptconfig.ResolveWorkers(workers)
	items := buildWorkItems(t, resolved.ArchiveRoot)

	d := &dispatch.Dispatcher{Workers: n, Queue: hashengineQueue(n)}
	shardName := filepath.Base(archiveName)
	// workDir is resolved.WorkDir, not t.RootAbsPath: WorkItem.RelPath is now
	// rebased under the archive root, so joining it against the root's
	// parent (not the root itself) reproduces the real on-disk path,
	// regardless of whether t came from a fresh walk or a loaded .etr whose
	// own RootAbsPath may point somewhere else entirely.
	newWorker := tarshard.NewWorkerFunc(archiveName, shardName, resolved.WorkDir, gzipEnabled)

	result := d.Run(context.Background(), items, newWorker)

	for id, werr := range result.WorkerErrors {
		logger.Error("ptarcli: shard error", "worker", id, "error", werr)
	}
	_, missing := reporter.Summarize(result)
	for _, path := range missing {
		logger.Warn("ptarcli: entry not archived", "path", path)
	}

	if len(result.WorkerErrors) > 0 {
		return fmt.Errorf("%w: %d shard(s) failed", pterrors.ErrWriteFailed, len(result.WorkerErrors))
	}
	if len(missing) > 0 {
		return partialSuccess{missing: len(missing)}
	}
	return nil
}

func hashengineQueue(workers int) int {
	const queueFactor = 4
	return queueFactor * workers
}

// buildWorkItems enumerates t's file leaves and empty directories as
// dispatch.WorkItems, each RelPath rebased under archiveRoot so every tar
// entry lands at "<archiveRoot>/<path-within-tree>" rather than leaking
// the bare walked-directory-relative path.
func buildWorkItems(t *tree.Tree, archiveRoot string) []dispatch.WorkItem {
	leaves := t.Leaves()
	items := make([]dispatch.WorkItem, 0, len(leaves)+8)
	for _, leaf := range leaves {
		size := int64(-1)
		if leaf.Entry.File.HasHash {
			size = leaf.Entry.File.Size
		}
		items = append(items, dispatch.WorkItem{
			RelPath:      rebase(archiveRoot, leaf.Path),
			ExpectedSize: size,
			ExpectedHash: leaf.Entry.File.ContentHash,
			HasHash:      leaf.Entry.File.HasHash,
		})
	}
	for _, dir := range t.EmptyDirs() {
		items = append(items, dispatch.WorkItem{RelPath: rebase(archiveRoot, dir), IsDir: true})
	}
	return items
}

// rebase prefixes a tree-relative path with the archive root component so
// archiving "/a/b/c" produces entries named "c/...", not "...".
func rebase(archiveRoot, path string) string {
	if path == "" {
		return archiveRoot
	}
	return archiveRoot + "/" + path
}

// partialSuccess is a sentinel error type distinguishing exit code 3
// (partial success with warnings) from exit code 2 (fatal).
type partialSuccess struct{ missing int }

func (p partialSuccess) Error() string {
	return fmt.Sprintf("partial success: %d entries not archived", p.missing)
}

func main() {
	err := rootCmd.Execute()
	var partial partialSuccess
	switch {
	case err == nil:
		os.Exit(0)
	case errors.As(err, &partial):
		os.Exit(3)
	default:
		os.Exit(2)
	}
}
