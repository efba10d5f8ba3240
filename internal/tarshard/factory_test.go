package tarshard

import "testing"

func TestShardPath(t *testing.T) {
	got := ShardPath("/out/archive", "archive", 3, false)
	want := "/out/archive/archive.3.tar"
	if got != want {
		t.Errorf("ShardPath() = %q, want %q", got, want)
	}
}

func TestShardPathGzip(t *testing.T) {
	got := ShardPath("/out/archive", "archive", 0, true)
	want := "/out/archive/archive.0.tar.gz"
	if got != want {
		t.Errorf("ShardPath() = %q, want %q", got, want)
	}
}
