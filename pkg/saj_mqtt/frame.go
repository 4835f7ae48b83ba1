package saj_mqtt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrFrameIncomplete      = errors.New("saj: incomplete frame")
	ErrFrameInvalid         = errors.New("saj: invalid frame")
	ErrRequestTimeout       = errors.New("saj: request timeout")
	ErrPayloadTooShort      = errors.New("saj: payload too short")
	ErrBadFormat            = errors.New("saj: bad format string")
	ErrWriteNotAcknowledged = errors.New("saj: write not acknowledged")
)

// MaxRegistersPerQuery is the largest register count the comm module
// answers in a single request. Larger spans are split into multiple
// requests.
const MaxRegistersPerQuery = 0x64

const (
	unitAddress     = 0x01
	fnReadRegisters = 0x03
	fnWriteRegister = 0x06

	// response types are the request function code plus 0x100
	rspReadRegisters = 0x103
	rspWriteRegister = 0x106

	frameMarker0 = 0x58
	frameMarker1 = 0xC9

	// LEN + REQ_ID + TIMESTAMP + RSP_TYPE
	rspHeaderSize = 0x0A
)

// crc16 is the Modbus CRC-16 (poly 0xA001, init 0xFFFF). On the wire it
// travels low byte first, as in Modbus RTU.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func readRegistersContent(start uint16, count uint16) []byte {
	content := make([]byte, 6)
	content[0] = unitAddress
	content[1] = fnReadRegisters
	binary.BigEndian.PutUint16(content[2:], start)
	binary.BigEndian.PutUint16(content[4:], count)
	return content
}

func writeRegisterContent(register uint16, value uint16) []byte {
	content := make([]byte, 6)
	content[0] = unitAddress
	content[1] = fnWriteRegister
	binary.BigEndian.PutUint16(content[2:], register)
	binary.BigEndian.PutUint16(content[4:], value)
	return content
}

// buildRequestFrame wraps command content for the wire:
//
//	LEN(2) REQ_ID(2) 0x58 0xC9 RND(2) CONTENT CRC(2)
//
// All fields are big endian except the CRC. LEN counts every byte after
// the length field itself. The CRC covers the content bytes only.
func buildRequestFrame(requestID uint16, filler uint16, content []byte) []byte {
	frame := make([]byte, 8+len(content)+2)
	binary.BigEndian.PutUint16(frame[0:], uint16(6+len(content)+2))
	binary.BigEndian.PutUint16(frame[2:], requestID)
	frame[4] = frameMarker0
	frame[5] = frameMarker1
	binary.BigEndian.PutUint16(frame[6:], filler)
	copy(frame[8:], content)
	binary.LittleEndian.PutUint16(frame[8+len(content):], crc16(content))
	return frame
}

// responseFrame is the decoded envelope of a data_transmission_rsp
// payload:
//
//	LEN(2) REQ_ID(2) TIMESTAMP(4) RSP_TYPE(2) BODY CRC(2)
//
// The CRC covers RSP_TYPE plus BODY.
type responseFrame struct {
	requestID uint16
	timestamp uint32
	rspType   uint16
	body      []byte
}

func parseResponseFrame(raw []byte) (*responseFrame, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameIncomplete, len(raw))
	}
	total := int(binary.BigEndian.Uint16(raw)) + 2
	if total < rspHeaderSize+2 {
		return nil, fmt.Errorf("%w: declared length %d", ErrFrameInvalid, total-2)
	}
	if len(raw) < total {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrFrameIncomplete, len(raw), total)
	}
	frame := raw[:total]
	wireCRC := binary.LittleEndian.Uint16(frame[total-2:])
	if calc := crc16(frame[0x08 : total-2]); calc != wireCRC {
		return nil, fmt.Errorf("%w: crc 0x%04x, expected 0x%04x", ErrFrameInvalid, wireCRC, calc)
	}
	return &responseFrame{
		requestID: binary.BigEndian.Uint16(frame[0x02:]),
		timestamp: binary.BigEndian.Uint32(frame[0x04:]),
		rspType:   binary.BigEndian.Uint16(frame[0x08:]),
		body:      frame[rspHeaderSize : total-2],
	}, nil
}

// parseReadBody extracts the register payload from a read response body
// (SIZE(1) + SIZE bytes of register data).
func parseReadBody(body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: empty read body", ErrFrameInvalid)
	}
	size := int(body[0])
	if len(body) != 1+size {
		return nil, fmt.Errorf("%w: read body carries %d bytes, declares %d", ErrFrameInvalid, len(body)-1, size)
	}
	return body[1:], nil
}

// parseWriteBody extracts the acknowledgement of a write. The comm
// module does not echo the request as plain Modbus would: the reply
// carries the written value and the CRC of the request content, both
// little endian.
func parseWriteBody(body []byte) (value uint16, requestCRC uint16, err error) {
	if len(body) != 4 {
		return 0, 0, fmt.Errorf("%w: write body of %d bytes", ErrFrameInvalid, len(body))
	}
	return binary.LittleEndian.Uint16(body[0:]), binary.LittleEndian.Uint16(body[2:]), nil
}

type readChunk struct {
	start uint16
	count uint16
}

// splitReadChunks splits a register span into query sized chunks in
// ascending address order.
func splitReadChunks(start uint16, count uint16) []readChunk {
	var chunks []readChunk
	for count > 0 {
		n := count
		if n > MaxRegistersPerQuery {
			n = MaxRegistersPerQuery
		}
		chunks = append(chunks, readChunk{start: start, count: n})
		start += n
		count -= n
	}
	return chunks
}

// HexDump renders raw register bytes in the aa:bb:cc form used for
// logs and ad-hoc read results.
func HexDump(data []byte) string {
	buf := make([]byte, 0, len(data)*3)
	const digits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, digits[b>>4], digits[b&0x0F])
	}
	return string(buf)
}
