package indexcodec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/JBlaschke/parallel-tar/internal/pterrors"
	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// Options controls Decode's strictness.
type Options struct {
	// StrictUTF8 rejects paths tagged as raw (non-UTF-8) bytes with
	// pterrors.ErrInvalidUTF8Path instead of accepting them as-is.
	StrictUTF8 bool
}

// Decode reads a Tree from r per the format in format.go.
func Decode(r io.Reader, opts Options) (*tree.Tree, error) {
	br := bufio.NewReader(r)

	var header [8 + 2 + 1 + 1 + reservedHeaderBytes]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("indexcodec: read header: %w: %v", pterrors.ErrTruncated, err)
	}
	if string(header[0:8]) != string(Magic[:]) {
		return nil, fmt.Errorf("indexcodec: %w", pterrors.ErrBadMagic)
	}
	version := binary.LittleEndian.Uint16(header[8:10])
	if version != Version {
		return nil, fmt.Errorf("indexcodec: version %d: %w", version, pterrors.ErrUnsupportedVersion)
	}
	hashAlgo := header[11]

	d := &decoder{r: br, opts: opts}
	root, err := d.readEntry()
	if err != nil {
		return nil, err
	}
	if root.Kind != tree.KindDirectory {
		return nil, fmt.Errorf("indexcodec: root entry is not a directory: %w", pterrors.ErrIndexCorrupt)
	}

	t := &tree.Tree{Root: root, HashAlgo: hashAlgo}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("indexcodec: %w: %v", pterrors.ErrIndexCorrupt, err)
	}
	return t, nil
}

type decoder struct {
	r    *bufio.Reader
	opts Options
}

func (d *decoder) readEntry() (*tree.Entry, error) {
	typeTag, err := d.r.ReadByte()
	if err != nil {
		return nil, truncated("type tag", err)
	}
	flags, err := d.r.ReadByte()
	if err != nil {
		return nil, truncated("flags", err)
	}

	nameBytes, err := d.readBytes()
	if err != nil {
		return nil, truncated("name", err)
	}
	if d.opts.StrictUTF8 && !utf8.Valid(nameBytes) {
		return nil, fmt.Errorf("indexcodec: %w: %q", pterrors.ErrInvalidUTF8Path, nameBytes)
	}
	name := string(nameBytes)

	payloadLen, err := binary.ReadUvarint(d.r)
	if err != nil {
		return nil, truncated("payload length", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, truncated("payload", err)
	}

	switch typeTag {
	case typeFile:
		return d.decodeFile(name, flags, payload)
	case typeDir:
		return d.decodeDir(name, flags, payload)
	default:
		return nil, fmt.Errorf("indexcodec: unknown entry type tag %d: %w", typeTag, pterrors.ErrIndexCorrupt)
	}
}

func (d *decoder) decodeFile(name string, flags byte, payload []byte) (*tree.Entry, error) {
	pr := newPayloadReader(payload)
	e := tree.NewFile(name)

	if flags&flagHasMeta != 0 {
		size, err := pr.varint()
		if err != nil {
			return nil, truncated("file size", err)
		}
		mtime, err := pr.varint()
		if err != nil {
			return nil, truncated("file mtime", err)
		}
		mode, err := pr.uvarint()
		if err != nil {
			return nil, truncated("file mode", err)
		}
		uid, err := pr.uvarint()
		if err != nil {
			return nil, truncated("file uid", err)
		}
		gid, err := pr.uvarint()
		if err != nil {
			return nil, truncated("file gid", err)
		}
		var hash [tree.HashSize]byte
		if err := pr.fixed(hash[:]); err != nil {
			return nil, truncated("file content hash", err)
		}
		missing, err := pr.boolean()
		if err != nil {
			return nil, truncated("file missing flag", err)
		}

		e.File.HasHash = true
		e.File.Size = size
		e.File.Mtime = mtime
		e.File.Mode = uint32(mode)
		e.File.UID = uint32(uid)
		e.File.GID = uint32(gid)
		e.File.ContentHash = hash
		e.File.Missing = missing
	}

	isSymlink, err := pr.boolean()
	if err != nil {
		return nil, truncated("file symlink flag", err)
	}
	e.File.IsSymlink = isSymlink
	if isSymlink {
		target, err := pr.bytes()
		if err != nil {
			return nil, truncated("symlink target", err)
		}
		e.File.SymlinkTarget = string(target)
	}

	return e, nil
}

func (d *decoder) decodeDir(name string, flags byte, payload []byte) (*tree.Entry, error) {
	pr := newPayloadReader(payload)
	e := tree.NewDir(name)

	if flags&flagHasMeta != 0 {
		var hash [tree.HashSize]byte
		if err := pr.fixed(hash[:]); err != nil {
			return nil, truncated("dir hash", err)
		}
		aggFiles, err := pr.varint()
		if err != nil {
			return nil, truncated("aggregate file count", err)
		}
		aggDirs, err := pr.varint()
		if err != nil {
			return nil, truncated("aggregate dir count", err)
		}
		aggBytes, err := pr.varint()
		if err != nil {
			return nil, truncated("aggregate bytes", err)
		}

		e.Dir.HasHash = true
		e.Dir.DirHash = hash
		e.Dir.AggregateFiles = aggFiles
		e.Dir.AggregateDirs = aggDirs
		e.Dir.AggregateBytes = aggBytes
	}

	childCount, err := binary.ReadUvarint(d.r)
	if err != nil {
		return nil, truncated("child count", err)
	}
	e.Children = make([]*tree.Entry, 0, childCount)
	for i := uint64(0); i < childCount; i++ {
		child, err := d.readEntry()
		if err != nil {
			return nil, err
		}
		e.Children = append(e.Children, child)
	}

	return e, nil
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := binary.ReadUvarint(d.r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func truncated(field string, cause error) error {
	return fmt.Errorf("indexcodec: %s: %w: %v", field, pterrors.ErrTruncated, cause)
}
