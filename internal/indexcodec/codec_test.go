package indexcodec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/JBlaschke/parallel-tar/internal/pterrors"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

func sampleEtr() *tree.Tree {
	root := tree.NewDir("root")
	root.AddChild(tree.NewFile("a.txt"))
	sub := tree.NewDir("sub")
	sub.AddChild(tree.NewFile("b.txt"))
	root.AddChild(sub)
	return &tree.Tree{Root: root}
}

func sampleIdx() *tree.Tree {
	t := sampleEtr()
	var h1, h2, h3 [tree.HashSize]byte
	h1[0], h2[0], h3[0] = 1, 2, 3

	a := t.Root.Children[0]
	a.File.HasHash = true
	a.File.Size = 10
	a.File.ContentHash = h1

	sub := t.Root.Children[1]
	b := sub.Children[0]
	b.File.HasHash = true
	b.File.Size = 20
	b.File.ContentHash = h2

	sub.Dir.HasHash = true
	sub.Dir.DirHash = h3
	sub.Dir.AggregateFiles = 1
	sub.Dir.AggregateBytes = 20

	t.Root.Dir.HasHash = true
	t.Root.Dir.DirHash = h3
	t.Root.Dir.AggregateFiles = 2
	t.Root.Dir.AggregateDirs = 1
	t.Root.Dir.AggregateBytes = 30
	return t
}

func TestRoundTripEtr(t *testing.T) {
	in := sampleEtr()
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(&buf, Options{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	assertSameShape(t, in.Root, out.Root)
}

func TestRoundTripIdx(t *testing.T) {
	in := sampleIdx()
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out, err := Decode(&buf, Options{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.Kind() != "idx" {
		t.Fatalf("Kind() = %q, want idx", out.Kind())
	}
	assertSameShape(t, in.Root, out.Root)
}

func assertSameShape(t *testing.T, a, b *tree.Entry) {
	t.Helper()
	if a.Name != b.Name || a.Kind != b.Kind {
		t.Fatalf("entry mismatch: %+v vs %+v", a, b)
	}
	if a.Kind == tree.KindFile {
		if a.File.HasHash != b.File.HasHash || a.File.Size != b.File.Size || a.File.ContentHash != b.File.ContentHash {
			t.Fatalf("file meta mismatch: %+v vs %+v", a.File, b.File)
		}
		return
	}
	if a.Dir.HasHash != b.Dir.HasHash || a.Dir.DirHash != b.Dir.DirHash {
		t.Fatalf("dir meta mismatch: %+v vs %+v", a.Dir, b.Dir)
	}
	if len(a.Children) != len(b.Children) {
		t.Fatalf("child count mismatch: %d vs %d", len(a.Children), len(b.Children))
	}
	for i := range a.Children {
		assertSameShape(t, a.Children[i], b.Children[i])
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, 16)
	_, err := Decode(bytes.NewReader(buf), Options{})
	if !errors.Is(err, pterrors.ErrBadMagic) {
		t.Fatalf("Decode() error = %v, want ErrBadMagic", err)
	}
}

func TestDecodeRejectsTruncation(t *testing.T) {
	var full bytes.Buffer
	if err := Encode(&full, sampleEtr()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	truncatedBytes := full.Bytes()[:full.Len()-3]
	_, err := Decode(bytes.NewReader(truncatedBytes), Options{})
	if !errors.Is(err, pterrors.ErrTruncated) {
		t.Fatalf("Decode() error = %v, want ErrTruncated", err)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var full bytes.Buffer
	if err := Encode(&full, sampleEtr()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b := full.Bytes()
	b[8] = 0xFF
	b[9] = 0xFF
	_, err := Decode(bytes.NewReader(b), Options{})
	if !errors.Is(err, pterrors.ErrUnsupportedVersion) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.idx"
	in := sampleIdx()
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	assertSameShape(t, in.Root, out.Root)
}
