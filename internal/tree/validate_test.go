package tree

import "testing"

func TestValidateRejectsDuplicateNames(t *testing.T) {
	root := NewDir("root")
	root.Children = append(root.Children, NewFile("a"), NewFile("a"))
	tr := &Tree{Root: root}
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for duplicate child names")
	}
}

func TestValidateRejectsUnsortedChildren(t *testing.T) {
	root := NewDir("root")
	root.Children = append(root.Children, NewFile("zebra"), NewFile("apple"))
	tr := &Tree{Root: root}
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for unsorted children")
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	tr := buildSample()
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsNonDirRoot(t *testing.T) {
	tr := &Tree{Root: NewFile("not-a-dir")}
	if err := tr.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for non-directory root")
	}
}
