package tree

import "fmt"

// Validate checks the tree's structural invariants: unique child names
// within each directory, and children sorted lexicographically by name. It
// is used by IndexCodec.Decode and by tests that construct trees by hand.
func (t *Tree) Validate() error {
	if t.Root == nil {
		return fmt.Errorf("tree: nil root")
	}
	if t.Root.Kind != KindDirectory {
		return fmt.Errorf("tree: root is not a directory")
	}
	return validateEntry("", t.Root)
}

func validateEntry(path string, e *Entry) error {
	if e.Kind != KindDirectory {
		return nil
	}
	seen := make(map[string]struct{}, len(e.Children))
	for i, c := range e.Children {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("tree: duplicate child name %q under %q", c.Name, path)
		}
		seen[c.Name] = struct{}{}
		if i > 0 && e.Children[i-1].Name > c.Name {
			return fmt.Errorf("tree: children of %q not sorted: %q before %q", path, e.Children[i-1].Name, c.Name)
		}
		childPath := c.Name
		if path != "" {
			childPath = path + "/" + c.Name
		}
		if err := validateEntry(childPath, c); err != nil {
			return err
		}
	}
	return nil
}
