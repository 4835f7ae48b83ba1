package saj_mqtt

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVector(t *testing.T) {
	assert := assert.New(t)

	// classic Modbus reference frame 01 04 02 FF FF, CRC on wire B8 80
	crc := crc16([]byte{0x01, 0x04, 0x02, 0xFF, 0xFF})
	assert.Equal(uint16(0x80B8), crc)
}

func TestBuildReadRequestFrame(t *testing.T) {
	assert := assert.New(t)

	content := readRegistersContent(0x4000, 0x0100)
	frame := buildRequestFrame(0x1234, 0xABCD, content)

	assert.Equal(16, len(frame))
	assert.Equal(uint16(14), binary.BigEndian.Uint16(frame[0:2]))
	assert.Equal(uint16(0x1234), binary.BigEndian.Uint16(frame[2:4]))
	assert.Equal(byte(0x58), frame[4])
	assert.Equal(byte(0xC9), frame[5])
	assert.Equal(uint16(0xABCD), binary.BigEndian.Uint16(frame[6:8]))
	assert.Equal([]byte{0x01, 0x03, 0x40, 0x00, 0x01, 0x00}, frame[8:14])
	assert.Equal(crc16(content), binary.LittleEndian.Uint16(frame[14:16]))
}

func TestBuildWriteRequestFrame(t *testing.T) {
	assert := assert.New(t)

	content := writeRegisterContent(0x3247, 0x0002)
	frame := buildRequestFrame(0x00A1, 0x0000, content)

	assert.Equal([]byte{0x01, 0x06, 0x32, 0x47, 0x00, 0x02}, frame[8:14])
	assert.Equal(crc16(content), binary.LittleEndian.Uint16(frame[14:16]))
}

func TestParseResponseFrameRoundTrip(t *testing.T) {
	assert := assert.New(t)

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	raw := buildTestReadResponse(0x0BB8, data)

	rsp, err := parseResponseFrame(raw)
	assert.Nil(err)
	assert.Equal(uint16(0x0BB8), rsp.requestID)
	assert.Equal(uint16(rspReadRegisters), rsp.rspType)

	payload, err := parseReadBody(rsp.body)
	assert.Nil(err)
	assert.Equal(data, payload)
}

func TestParseResponseFrameDetectsSingleBitFlips(t *testing.T) {
	assert := assert.New(t)

	raw := buildTestReadResponse(0x0042, []byte{0x00, 0x64, 0x01, 0x02})

	// flipping any single bit in the checksummed region or in the
	// checksum itself must be detected
	for byteIdx := 0x08; byteIdx < len(raw); byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := make([]byte, len(raw))
			copy(corrupt, raw)
			corrupt[byteIdx] ^= 1 << bit

			_, err := parseResponseFrame(corrupt)
			assert.ErrorIs(err, ErrFrameInvalid, "byte 0x%02x bit %d", byteIdx, bit)
		}
	}
}

func TestParseResponseFrameTruncated(t *testing.T) {
	assert := assert.New(t)

	raw := buildTestReadResponse(0x0042, []byte{0x11, 0x22})
	for cut := 0; cut < len(raw); cut++ {
		_, err := parseResponseFrame(raw[:cut])
		assert.ErrorIs(err, ErrFrameIncomplete, "%d bytes", cut)
	}

	// intact frame still parses
	_, err := parseResponseFrame(raw)
	assert.Nil(err)
}

func TestParseReadBodySizeMismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := parseReadBody([]byte{0x04, 0x11, 0x22})
	assert.ErrorIs(err, ErrFrameInvalid)

	_, err = parseReadBody([]byte{})
	assert.ErrorIs(err, ErrFrameInvalid)
}

func TestParseWriteBody(t *testing.T) {
	assert := assert.New(t)

	value, requestCRC, err := parseWriteBody([]byte{0x37, 0x13, 0xAB, 0xCD})
	assert.Nil(err)
	assert.Equal(uint16(0x1337), value)
	assert.Equal(uint16(0xCDAB), requestCRC)

	_, _, err = parseWriteBody([]byte{0x37, 0x13})
	assert.ErrorIs(err, ErrFrameInvalid)
}

func TestSplitReadChunks(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]readChunk{{0x3247, 1}}, splitReadChunks(0x3247, 1))
	assert.Equal([]readChunk{{0x4000, 0x64}}, splitReadChunks(0x4000, 0x64))
	assert.Equal([]readChunk{{0x0000, 0x64}, {0x0064, 0x64}}, splitReadChunks(0x0000, 0xC8))
	assert.Equal([]readChunk{
		{0x4000, 0x64},
		{0x4064, 0x64},
		{0x40C8, 0x38},
	}, splitReadChunks(0x4000, 0x100))
}

func TestHexDump(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", HexDump(nil))
	assert.Equal("0a", HexDump([]byte{0x0A}))
	assert.Equal("0a:ff:00", HexDump([]byte{0x0A, 0xFF, 0x00}))
}
