package blockchain

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// Property 6: cross-endian round trip. A file tagged endianness=2 (big) and
// actually written in big-endian order must deserialize correctly
// regardless of this test host's own native order.
func TestDeserializeCrossEndian(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(version[:])
	buf.WriteByte(endianBig)
	require.NoError(t, writeUint32(&buf, binary.BigEndian, 1))
	require.NoError(t, writeUint32(&buf, binary.BigEndian, 0))
	require.NoError(t, writeBlock(&buf, binary.BigEndian, Genesis()))

	got, err := Deserialize(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, len(got.chain))
	require.Equal(t, *Genesis(), got.chain[0])
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte("XXXX0.3"))
	buf.WriteByte(endianLittle)
	_, err := Deserialize(&buf)
	require.Error(t, err)
}

func TestDeserializeRejectsUnknownEndianness(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(version[:])
	buf.WriteByte(3)
	_, err := Deserialize(&buf)
	require.Error(t, err)
}
