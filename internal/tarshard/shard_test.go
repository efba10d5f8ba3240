package tarshard

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/JBlaschke/parallel-tar/internal/dispatch"
	"github.com/JBlaschke/parallel-tar/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func readAllHeaders(t *testing.T, path string) []*tar.Header {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %q: %v", path, err)
	}
	defer f.Close()
	tr := tar.NewReader(f)
	var headers []*tar.Header
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next: %v", err)
		}
		headers = append(headers, hdr)
	}
	return headers
}

func TestShardWritesFileAndDirHeaders(t *testing.T) {
	workDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workDir, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "sub", "f.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out := filepath.Join(t.TempDir(), "shard.0.tar")
	shard, err := NewShard(out, 0, false)
	if err != nil {
		t.Fatalf("NewShard() error = %v", err)
	}

	ok, err := shard.WriteEntry(workDir, dispatch.WorkItem{RelPath: "sub/f.txt", ExpectedSize: -1})
	if err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if !ok {
		t.Fatal("WriteEntry() ok = false, want true")
	}

	if err := shard.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	headers := readAllHeaders(t, out)
	var names []string
	for _, h := range headers {
		names = append(names, h.Name)
	}
	if len(names) != 2 {
		t.Fatalf("headers = %v, want 2 entries (dir + file)", names)
	}
	if names[0] != "sub/" || headers[0].Typeflag != tar.TypeDir {
		t.Errorf("first header = %+v, want directory sub/", headers[0])
	}
	if names[1] != "sub/f.txt" || headers[1].Typeflag != tar.TypeReg {
		t.Errorf("second header = %+v, want regular file sub/f.txt", headers[1])
	}
	if headers[1].Size != int64(len("hello world")) {
		t.Errorf("file size = %d, want %d", headers[1].Size, len("hello world"))
	}
}

func TestShardEmitsDirPrefixOnlyOnce(t *testing.T) {
	workDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workDir, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "sub", "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "sub", "b.txt"), []byte("bb"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out := filepath.Join(t.TempDir(), "shard.0.tar")
	shard, err := NewShard(out, 0, false)
	if err != nil {
		t.Fatalf("NewShard() error = %v", err)
	}
	for _, name := range []string{"sub/a.txt", "sub/b.txt"} {
		if _, err := shard.WriteEntry(workDir, dispatch.WorkItem{RelPath: name, ExpectedSize: -1}); err != nil {
			t.Fatalf("WriteEntry(%q) error = %v", name, err)
		}
	}
	if err := shard.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	headers := readAllHeaders(t, out)
	dirCount := 0
	for _, h := range headers {
		if h.Typeflag == tar.TypeDir {
			dirCount++
		}
	}
	if dirCount != 1 {
		t.Fatalf("directory headers emitted = %d, want exactly 1", dirCount)
	}
}

func TestShardWriteEntryMissingFileNotAcknowledged(t *testing.T) {
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "shard.0.tar")
	shard, err := NewShard(out, 0, false)
	if err != nil {
		t.Fatalf("NewShard() error = %v", err)
	}
	defer shard.Close()

	ok, err := shard.WriteEntry(workDir, dispatch.WorkItem{RelPath: "gone.txt", ExpectedSize: -1})
	if ok {
		t.Fatal("WriteEntry() ok = true for missing file, want false")
	}
	if err == nil {
		t.Fatal("WriteEntry() error = nil, want non-nil for missing file")
	}
}

func TestShardGzipRoundTrip(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "a.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out := filepath.Join(t.TempDir(), "shard.0.tar.gz")
	shard, err := NewShard(out, 0, true)
	if err != nil {
		t.Fatalf("NewShard() error = %v", err)
	}
	if _, err := shard.WriteEntry(workDir, dispatch.WorkItem{RelPath: "a.txt", ExpectedSize: -1}); err != nil {
		t.Fatalf("WriteEntry() error = %v", err)
	}
	if err := shard.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open %q: %v", out, err)
	}
	defer f.Close()
	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		t.Fatalf("read magic: %v", err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		t.Fatalf("output is not gzip-framed, got magic %x", magic)
	}
}

func TestShardEmptyDirItem(t *testing.T) {
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "shard.0.tar")
	shard, err := NewShard(out, 0, false)
	if err != nil {
		t.Fatalf("NewShard() error = %v", err)
	}
	ok, err := shard.WriteEntry(workDir, dispatch.WorkItem{RelPath: "empty", IsDir: true})
	if err != nil || !ok {
		t.Fatalf("WriteEntry() = (%v, %v), want (true, nil)", ok, err)
	}
	if err := shard.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	headers := readAllHeaders(t, out)
	if len(headers) != 1 || headers[0].Name != "empty/" || headers[0].Typeflag != tar.TypeDir {
		t.Fatalf("headers = %+v, want single dir header for empty/", headers)
	}
}
