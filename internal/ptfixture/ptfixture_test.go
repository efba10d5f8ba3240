package ptfixture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildCreatesExpectedFileCount(t *testing.T) {
	dir := t.TempDir()
	files, err := Build(dir, Spec{Seed: 1, Depth: 2, FilesPerDir: 2, SubdirsPerDir: 2, MaxFileSize: 64})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// depth 0,1,2 each contribute FilesPerDir * (number of dirs at that depth)
	// dirs at depth 0: 1, depth 1: 2, depth 2: 4 => files = 2*(1+2+4) = 14
	if len(files) != 14 {
		t.Fatalf("Build() returned %d files, want 14", len(files))
	}
	for _, rel := range files {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("file %q not found on disk: %v", rel, err)
		}
	}
}

func TestBuildIsDeterministicForSameSeed(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	specA := Spec{Seed: 42, Depth: 1, FilesPerDir: 3, SubdirsPerDir: 1, MaxFileSize: 32}
	specB := specA

	filesA, err := Build(dirA, specA)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	filesB, err := Build(dirB, specB)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(filesA) != len(filesB) {
		t.Fatalf("file count mismatch: %d vs %d", len(filesA), len(filesB))
	}
	for i := range filesA {
		contentA, _ := os.ReadFile(filepath.Join(dirA, filesA[i]))
		contentB, _ := os.ReadFile(filepath.Join(dirB, filesB[i]))
		if string(contentA) != string(contentB) {
			t.Fatalf("content mismatch at %q for same seed", filesA[i])
		}
	}
}

func TestBuildCreatesEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	if _, err := Build(dir, Spec{Seed: 1, Depth: 0, FilesPerDir: 0, EmptyDirs: 3}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		info, err := os.Stat(filepath.Join(dir, "empty_0"+string(rune('0'+i))))
		if err != nil {
			t.Errorf("empty dir %d not found: %v", i, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("empty_0%d is not a directory", i)
		}
	}
}
