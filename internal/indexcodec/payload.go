package indexcodec

import (
	"bytes"
	"encoding/binary"
)

// payloadReader reads the fixed-layout fields within an entry's
// length-prefixed payload slice. Using a plain *bytes.Reader (rather than
// the outer bufio.Reader) keeps a malformed payloadLen from letting a
// record read past its own boundary into the next one.
type payloadReader struct {
	r *bytes.Reader
}

func newPayloadReader(b []byte) *payloadReader {
	return &payloadReader{r: bytes.NewReader(b)}
}

func (p *payloadReader) varint() (int64, error)   { return binary.ReadVarint(p.r) }
func (p *payloadReader) uvarint() (uint64, error) { return binary.ReadUvarint(p.r) }

func (p *payloadReader) fixed(dst []byte) error {
	n, err := p.r.Read(dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return bytes.ErrTooLarge
	}
	return nil
}

func (p *payloadReader) boolean() (bool, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (p *payloadReader) bytes() ([]byte, error) {
	n, err := binary.ReadUvarint(p.r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := p.fixed(b); err != nil {
		return nil, err
	}
	return b, nil
}
