package indexcodec

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/JBlaschke/parallel-tar/internal/tree"
)

// Encode writes t to w in the format described in format.go. Encoding never
// fails except on short writes to w, so the round-trip property holds for
// any Tree that satisfies tree.Validate.
func Encode(w io.Writer, t *tree.Tree) error {
	var header [8 + 2 + 1 + 1 + reservedHeaderBytes]byte
	copy(header[0:8], Magic[:])
	binary.LittleEndian.PutUint16(header[8:10], Version)
	if t.Kind() == "idx" {
		header[10] = KindIdx
	} else {
		header[10] = KindEtr
	}
	header[11] = t.HashAlgo
	// header[12:16] reserved, left zero.
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	encodeEntry(buf, t.Root)
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeEntry(buf *bytes.Buffer, e *tree.Entry) {
	if e.Kind == tree.KindDirectory {
		encodeDir(buf, e)
		return
	}
	encodeFile(buf, e)
}

func encodeFile(buf *bytes.Buffer, e *tree.Entry) {
	flags := byte(0)
	raw := !utf8.ValidString(e.Name)
	if raw {
		flags |= flagRawName
	}
	if e.File.HasHash {
		flags |= flagHasMeta
	}

	buf.WriteByte(typeFile)
	buf.WriteByte(flags)
	writeName(buf, e.Name)

	payload := &bytes.Buffer{}
	if e.File.HasHash {
		writeVarint(payload, e.File.Size)
		writeVarint(payload, e.File.Mtime)
		writeUvarint(payload, uint64(e.File.Mode))
		writeUvarint(payload, uint64(e.File.UID))
		writeUvarint(payload, uint64(e.File.GID))
		payload.Write(e.File.ContentHash[:])
		writeBool(payload, e.File.Missing)
	}
	writeBool(payload, e.File.IsSymlink)
	if e.File.IsSymlink {
		writeBytes(payload, []byte(e.File.SymlinkTarget))
	}

	writeUvarint(buf, uint64(payload.Len()))
	buf.Write(payload.Bytes())
}

func encodeDir(buf *bytes.Buffer, e *tree.Entry) {
	flags := byte(0)
	raw := !utf8.ValidString(e.Name)
	if raw {
		flags |= flagRawName
	}
	if e.Dir.HasHash {
		flags |= flagHasMeta
	}

	buf.WriteByte(typeDir)
	buf.WriteByte(flags)
	writeName(buf, e.Name)

	payload := &bytes.Buffer{}
	if e.Dir.HasHash {
		payload.Write(e.Dir.DirHash[:])
		writeVarint(payload, e.Dir.AggregateFiles)
		writeVarint(payload, e.Dir.AggregateDirs)
		writeVarint(payload, e.Dir.AggregateBytes)
	}
	writeUvarint(buf, uint64(payload.Len()))
	buf.Write(payload.Bytes())

	writeUvarint(buf, uint64(len(e.Children)))
	for _, c := range e.Children {
		encodeEntry(buf, c)
	}
}

func writeName(buf *bytes.Buffer, name string) {
	writeBytes(buf, []byte(name))
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeVarint(buf *bytes.Buffer, v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	buf.Write(tmp[:n])
}
