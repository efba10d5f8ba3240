package hashengine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/JBlaschke/parallel-tar/internal/logger"
	"github.com/JBlaschke/parallel-tar/internal/tree"
	"github.com/JBlaschke/parallel-tar/internal/walker"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func buildFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world!!"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return dir
}

func TestFillPopulatesHashesAndAggregates(t *testing.T) {
	dir := buildFixture(t)
	tr, _, err := walker.Walk(dir, walker.Options{})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	eng := &Engine{Workers: 2, WorkDir: tr.RootAbsPath}
	report, err := eng.Fill(context.Background(), tr)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("Fill() warnings = %v, want none", report.Warnings)
	}

	for _, leaf := range tr.Leaves() {
		if !leaf.Entry.File.HasHash {
			t.Errorf("leaf %q has no hash after Fill", leaf.Path)
		}
	}
	if !tr.Root.Dir.HasHash {
		t.Fatal("root directory has no hash after Fill")
	}
	if tr.Root.Dir.AggregateFiles != 2 {
		t.Errorf("AggregateFiles = %d, want 2", tr.Root.Dir.AggregateFiles)
	}
	if tr.Root.Dir.AggregateBytes != int64(len("hello")+len("world!!")) {
		t.Errorf("AggregateBytes = %d, want %d", tr.Root.Dir.AggregateBytes, len("hello")+len("world!!"))
	}
}

func TestHashStableAcrossWorkerCounts(t *testing.T) {
	dir := buildFixture(t)

	var dirHashes [][32]byte
	for _, n := range []int{1, 4, 16} {
		tr, _, err := walker.Walk(dir, walker.Options{})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		eng := &Engine{Workers: n, WorkDir: tr.RootAbsPath}
		if _, err := eng.Fill(context.Background(), tr); err != nil {
			t.Fatalf("Fill() error = %v", err)
		}
		dirHashes = append(dirHashes, tr.Root.Dir.DirHash)
	}

	for i := 1; i < len(dirHashes); i++ {
		if dirHashes[i] != dirHashes[0] {
			t.Fatalf("dir_hash differs across worker counts: %x vs %x", dirHashes[0], dirHashes[i])
		}
	}
}

func TestFillReportsVanishedEntry(t *testing.T) {
	dir := t.TempDir()
	root := tree.NewDir(filepath.Base(dir))
	root.AddChild(tree.NewFile("missing.txt"))
	tr := &tree.Tree{RootAbsPath: dir, Root: root}

	eng := &Engine{Workers: 1, WorkDir: dir}
	report, err := eng.Fill(context.Background(), tr)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("Fill() warnings = %v, want 1 for vanished entry", report.Warnings)
	}
	if !root.Children[0].File.Missing {
		t.Fatal("vanished entry not marked Missing")
	}
}
