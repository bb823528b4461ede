// Package record implements the on-disk encoding for the log.
//
// Every record is self-delimiting: a tag byte identifies whether it is a Set
// or a Remove, followed by a fixed-width signed key and, for Set, a
// fixed-width signed length and the value bytes. All multi-byte integers are
// big-endian.
package record

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	tagSet    byte = 0x00
	tagRemove byte = 0x01

	// setHeaderSize is the tag byte plus an 8-byte key and 8-byte length.
	setHeaderSize = 1 + 8 + 8
	// removeSize is the tag byte plus an 8-byte key.
	removeSize = 1 + 8
)

// ErrMalformed is returned when the tag is unknown or a length is negative:
// structural corruption that isn't explained by simply running out of
// bytes. Decode returns io.ErrUnexpectedEOF instead when the stream ends
// partway through an otherwise well-formed record (a torn trailing write),
// and io.EOF when the stream ends cleanly between records.
var ErrMalformed = errors.New("record: malformed")

// Record is a decoded log entry: either a Set (Value present) or a Remove
// (Value nil).
type Record struct {
	Key   int64
	Value []byte
	IsSet bool
}

// EncodeSet returns the encoded bytes of a SetRecord{key, value}.
func EncodeSet(key int64, value []byte) []byte {
	b := make([]byte, setHeaderSize+len(value))
	b[0] = tagSet
	binary.BigEndian.PutUint64(b[1:9], uint64(key))
	binary.BigEndian.PutUint64(b[9:17], uint64(len(value)))
	copy(b[17:], value)
	return b
}

// EncodeRemove returns the encoded bytes of a RemoveRecord{key}.
func EncodeRemove(key int64) []byte {
	b := make([]byte, removeSize)
	b[0] = tagRemove
	binary.BigEndian.PutUint64(b[1:9], uint64(key))
	return b
}

// Decode reads a single record from r, returning the record and the number
// of bytes consumed.
func Decode(r io.Reader) (Record, int, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		// A 1-byte ReadFull either reads nothing (clean io.EOF) or
		// succeeds; there is no partial case to report as torn.
		return Record{}, 0, io.EOF
	}
	switch tagBuf[0] {
	case tagSet:
		var hdr [16]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return Record{}, 0, io.ErrUnexpectedEOF
		}
		key := int64(binary.BigEndian.Uint64(hdr[0:8]))
		length := int64(binary.BigEndian.Uint64(hdr[8:16]))
		if length < 0 {
			return Record{}, 0, ErrMalformed
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return Record{}, 0, io.ErrUnexpectedEOF
		}
		return Record{Key: key, Value: value, IsSet: true}, setHeaderSize + int(length), nil
	case tagRemove:
		var keyBuf [8]byte
		if _, err := io.ReadFull(r, keyBuf[:]); err != nil {
			return Record{}, 0, io.ErrUnexpectedEOF
		}
		key := int64(binary.BigEndian.Uint64(keyBuf[:]))
		return Record{Key: key, IsSet: false}, removeSize, nil
	default:
		return Record{}, 0, ErrMalformed
	}
}

// ReadValueAt positions r at offset and decodes the SetRecord expected
// there, returning only its value bytes. It is an error for the record at
// offset to be a RemoveRecord.
func ReadValueAt(r io.ReaderAt, offset int64) ([]byte, error) {
	sr := io.NewSectionReader(r, offset, 1<<62)
	rec, _, err := Decode(sr)
	if err != nil {
		return nil, err
	}
	if !rec.IsSet {
		return nil, ErrMalformed
	}
	return rec.Value, nil
}
