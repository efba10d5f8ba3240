package indexcodec

import (
	"fmt"
	"os"

	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// WriteFile encodes t and writes it to path, creating or truncating the
// file. The conventional suffix is .etr for an empty tree and .idx for a
// complete one, though WriteFile itself does not enforce the suffix.
func WriteFile(path string, t *tree.Tree) error {
	f, err := os.Create(path) //nolint:gosec // path is operator-supplied CLI output target
	if err != nil {
		return fmt.Errorf("indexcodec: create %q: %w", path, err)
	}

	if err := Encode(f, t); err != nil {
		f.Close()
		return fmt.Errorf("indexcodec: encode to %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("indexcodec: close %q: %w", path, err)
	}
	return nil
}

// ReadFile decodes a Tree from path using default (non-strict) options.
func ReadFile(path string) (*tree.Tree, error) {
	f, err := os.Open(path) //nolint:gosec // path is operator-supplied CLI input target
	if err != nil {
		return nil, fmt.Errorf("indexcodec: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := Decode(f, Options{})
	if err != nil {
		return nil, fmt.Errorf("indexcodec: decode %q: %w", path, err)
	}
	return t, nil
}
