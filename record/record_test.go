package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeSet(t *testing.T) {
	assert := assert.New(t)
	b := EncodeSet(42, []byte("hello"))
	assert.Equal(setHeaderSize+5, len(b))

	rec, n, err := Decode(bytes.NewReader(b))
	assert.NoError(err)
	assert.Equal(len(b), n)
	assert.True(rec.IsSet)
	assert.EqualValues(42, rec.Key)
	assert.Equal([]byte("hello"), rec.Value)
}

func TestEncodeDecodeSetEmptyValue(t *testing.T) {
	assert := assert.New(t)
	b := EncodeSet(7, nil)
	assert.Equal(setHeaderSize, len(b))

	rec, n, err := Decode(bytes.NewReader(b))
	assert.NoError(err)
	assert.Equal(setHeaderSize, n)
	assert.True(rec.IsSet)
	assert.Empty(rec.Value)
}

func TestEncodeDecodeRemove(t *testing.T) {
	assert := assert.New(t)
	b := EncodeRemove(-5)
	assert.Equal(removeSize, len(b))

	rec, n, err := Decode(bytes.NewReader(b))
	assert.NoError(err)
	assert.Equal(removeSize, n)
	assert.False(rec.IsSet)
	assert.EqualValues(-5, rec.Key)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte{0x02, 0, 0, 0, 0, 0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeEmptyStreamIsEOF(t *testing.T) {
	_, _, err := Decode(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}

func TestDecodeTornSetHeader(t *testing.T) {
	b := EncodeSet(1, []byte("value"))
	_, _, err := Decode(bytes.NewReader(b[:5]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeTornSetValue(t *testing.T) {
	b := EncodeSet(1, []byte("value"))
	_, _, err := Decode(bytes.NewReader(b[:len(b)-2]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeTornRemove(t *testing.T) {
	b := EncodeRemove(1)
	_, _, err := Decode(bytes.NewReader(b[:3]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadValueAt(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer
	buf.Write(EncodeSet(1, []byte("first")))
	offset := int64(buf.Len())
	buf.Write(EncodeSet(2, []byte("second")))

	data := bytes.NewReader(buf.Bytes())
	value, err := ReadValueAt(data, offset)
	assert.NoError(err)
	assert.Equal([]byte("second"), value)
}

func TestReadValueAtRemoveRecordIsMalformed(t *testing.T) {
	data := bytes.NewReader(EncodeRemove(1))
	_, err := ReadValueAt(data, 0)
	assert.ErrorIs(t, err, ErrMalformed)
}
