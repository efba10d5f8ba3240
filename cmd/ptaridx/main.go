// Command ptaridx walks a directory into an empty Tree, optionally fills it
// with content/Merkle hashes using a worker pool, and writes the result to
// a binary .etr/.idx file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JBlaschke/parallel-tar/internal/hashalgo"
	"github.com/JBlaschke/parallel-tar/internal/hashengine"
	"github.com/JBlaschke/parallel-tar/internal/indexcodec"
	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/ptconfig"
	"github.com/JBlaschke/parallel-tar/internal/pterrors"
	"github.com/JBlaschke/parallel-tar/internal/reporter"
	"github.com/JBlaschke/parallel-tar/internal/tree"
	"github.com/JBlaschke/parallel-tar/internal/walker"
	"github.com/JBlaschke/parallel-tar/version"
)

var (
	emptyOnly   bool
	fromEtr     string
	workers     int
	outPath     string
	excludes    []string
	ignoreFile  string
	followLinks bool
	logLevel    string
	logFormat   string
	hadWarnings bool
)

var rootCmd = &cobra.Command{
	Use:     "ptaridx <path>",
	Short:   "Build a parallel-tar index (.etr/.idx) of a directory",
	Args:    cobra.ExactArgs(1),
	Version: version.VERSION,
	RunE:    run,
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("ptaridx %s (%s) %s\n", version.VERSION, version.COMMIT, version.DATE))
}

func init() {
	rootCmd.Flags().BoolVarP(&emptyOnly, "empty", "e", false, "produce an empty tree (.etr) without hashing")
	rootCmd.Flags().StringVarP(&fromEtr, "tree", "t", "", "load an existing .etr as the work list instead of walking")
	rootCmd.Flags().IntVarP(&workers, "workers", "n", 0, "worker count (default: available parallelism)")
	rootCmd.Flags().StringVarP(&outPath, "output", "f", "", "output index path (.etr for empty, .idx for complete)")
	rootCmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "exclude pattern, gitignore-style (repeatable)")
	rootCmd.Flags().StringVarP(&ignoreFile, "ignore-file", "i", "", "custom ignore file, combined with --exclude and auto-loaded ignore files")
	rootCmd.Flags().BoolVar(&followLinks, "follow-symlinks", false, "follow symlinks instead of recording them as leaves")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default: $PTAR_LOG or warn)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "text|json")
	if err := rootCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Init(logger.ResolveLevel(logLevel, "warn"), logFormat, os.Stderr)
	root := args[0]

	var t *tree.Tree
	if fromEtr != "" {
		loaded, err := indexcodec.ReadFile(fromEtr)
		if err != nil {
			return fmt.Errorf("%w: %v", pterrors.ErrIndexCorrupt, err)
		}
		t = loaded
	} else {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", pterrors.ErrInputMissing, root)
		}
		opts, err := ptconfig.WalkerOptions(ptconfig.ExclusionOptions{
			Exclude:    excludes,
			IgnoreFile: ignoreFile,
			RootPath:   root,
		}, followLinks)
		if err != nil {
			return err
		}
		walked, warnings, err := walker.Walk(root, opts)
		if err != nil {
			return fmt.Errorf("%w: %v", pterrors.ErrInputMissing, err)
		}
		for _, w := range warnings {
			logger.Warn("ptaridx: "+w.Path, "error", w.Err)
		}
		t = walked
	}

	if !emptyOnly {
		eng := &hashengine.Engine{Workers: ptconfig.ResolveWorkers(workers), WorkDir: t.RootAbsPath, Algo: hashalgo.Blake3}
		report, err := eng.Fill(context.Background(), t)
		if err != nil {
			return fmt.Errorf("%w: %v", pterrors.ErrUnreadableEntry, err)
		}
		for _, w := range report.Warnings {
			logger.Warn("ptaridx: hash warning", "path", w.Path, "error", w.Err)
		}
		hadWarnings = len(report.Warnings) > 0

		for _, le := range reporter.LargestEntries(t, 5) {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10d %s  %s\n", le.Bytes, le.HashHex16, le.Path)
		}
	}

	if err := indexcodec.WriteFile(outPath, t); err != nil {
		return fmt.Errorf("%w: %v", pterrors.ErrWriteFailed, err)
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil && hadWarnings:
		os.Exit(3)
	case err == nil:
		os.Exit(0)
	case errors.Is(err, pterrors.ErrInputMissing), errors.Is(err, pterrors.ErrIndexCorrupt), errors.Is(err, pterrors.ErrWriteFailed):
		os.Exit(2)
	default:
		os.Exit(2)
	}
}
