package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/JBlaschke/parallel-tar/internal/indexcodec"
	"github.com/JBlaschke/parallel-tar/internal/ptfixture"
)

// resetFlags restores every package-level flag variable to its zero value
// so tests calling run() directly don't leak state across cases.
func resetFlags() {
	emptyOnly = false
	fromEtr = ""
	workers = 0
	outPath = ""
	excludes = nil
	ignoreFile = ""
	followLinks = false
	logLevel = "error"
	logFormat = "text"
	hadWarnings = false
}

func TestRunBuildsCompleteIndexWithHashes(t *testing.T) {
	resetFlags()
	src := t.TempDir()
	if _, err := ptfixture.Build(src, ptfixture.Spec{Seed: 1, Depth: 1, FilesPerDir: 2, SubdirsPerDir: 1, MaxFileSize: 128}); err != nil {
		t.Fatalf("ptfixture.Build() error = %v", err)
	}

	outPath = filepath.Join(t.TempDir(), "out.idx")
	if err := run(&cobra.Command{}, []string{src}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got, err := indexcodec.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	leaves := got.Leaves()
	if len(leaves) == 0 {
		t.Fatal("decoded tree has no leaves")
	}
	for _, leaf := range leaves {
		if !leaf.Entry.File.HasHash {
			t.Errorf("leaf %q has no hash, want hashed since --empty was not set", leaf.Path)
		}
	}
}

func TestRunEmptyProducesUnhashedTree(t *testing.T) {
	resetFlags()
	src := t.TempDir()
	if _, err := ptfixture.Build(src, ptfixture.Spec{Seed: 2, Depth: 0, FilesPerDir: 3}); err != nil {
		t.Fatalf("ptfixture.Build() error = %v", err)
	}

	emptyOnly = true
	outPath = filepath.Join(t.TempDir(), "out.etr")
	if err := run(&cobra.Command{}, []string{src}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got, err := indexcodec.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, leaf := range got.Leaves() {
		if leaf.Entry.File.HasHash {
			t.Errorf("leaf %q has a hash, want none for --empty", leaf.Path)
		}
	}
}

func TestRunRejectsMissingRoot(t *testing.T) {
	resetFlags()
	outPath = filepath.Join(t.TempDir(), "out.etr")
	if err := run(&cobra.Command{}, []string{filepath.Join(t.TempDir(), "does-not-exist")}); err == nil {
		t.Fatal("run() error = nil, want non-nil for missing root")
	}
}

func TestRunReportsVanishedEntryAsWarning(t *testing.T) {
	resetFlags()
	src := t.TempDir()
	if _, err := ptfixture.Build(src, ptfixture.Spec{Seed: 3, Depth: 0, FilesPerDir: 2}); err != nil {
		t.Fatalf("ptfixture.Build() error = %v", err)
	}

	etrPath := filepath.Join(t.TempDir(), "stale.etr")
	emptyOnly = true
	outPath = etrPath
	if err := run(&cobra.Command{}, []string{src}); err != nil {
		t.Fatalf("run() (empty pass) error = %v", err)
	}

	entries, err := filepath.Glob(filepath.Join(src, "*"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("glob source files: %v (%d entries)", err, len(entries))
	}
	removePath := entries[0]
	if err := os.RemoveAll(removePath); err != nil {
		t.Fatalf("remove %q: %v", removePath, err)
	}

	resetFlags()
	fromEtr = etrPath
	outPath = filepath.Join(t.TempDir(), "final.idx")
	if err := run(&cobra.Command{}, []string{src}); err != nil {
		t.Fatalf("run() (from stale .etr) error = %v", err)
	}
	if !hadWarnings {
		t.Error("hadWarnings = false, want true for a vanished entry")
	}
}
