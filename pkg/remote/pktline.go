// Package remote implements the client half of the Git Smart HTTP v0
// protocol: pkt-line framing, ref discovery, the upload-pack exchange, and
// the clone driver that ties them to the object store.
package remote

import (
	"bytes"
	"fmt"
	"strconv"
)

// MaxPktPayload is the largest payload EncodePktLine accepts; the framed
// packet is then 65523 bytes (length field 0xfff3).
const MaxPktPayload = 65519

// flushPkt terminates a protocol section and carries no payload.
var flushPkt = []byte("0000")

// EncodePktLine frames a payload as "LLLL<payload>" where LLLL is the hex
// total length including the four length bytes.
func EncodePktLine(payload []byte) ([]byte, error) {
	if len(payload) > MaxPktPayload {
		return nil, fmt.Errorf("pkt-line payload too long: %d bytes", len(payload))
	}
	out := make([]byte, 0, 4+len(payload))
	out = append(out, fmt.Sprintf("%04x", len(payload)+4)...)
	out = append(out, payload...)
	return out, nil
}

// DecodePktLines parses a pkt-line stream into its payloads. Flush packets
// ("0000") are consumed silently; the reserved lengths 1-3 and a truncated
// trailing packet end the stream. Payloads are returned verbatim; callers
// dealing in text trim with TrimPktNewline.
func DecodePktLines(data []byte) ([][]byte, error) {
	var payloads [][]byte
	pos := 0
	for pos+4 <= len(data) {
		lengthField := string(data[pos : pos+4])
		parsed, err := strconv.ParseUint(lengthField, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("pkt-line at offset %d: bad length %q", pos, lengthField)
		}
		length := int(parsed)

		if length == 0 {
			// Flush packet.
			pos += 4
			continue
		}
		if length < 4 {
			// Reserved; end of input.
			break
		}
		if pos+length > len(data) {
			break
		}
		payloads = append(payloads, data[pos+4:pos+length])
		pos += length
	}
	return payloads, nil
}

// TrimPktNewline drops a single trailing '\n' from an ASCII payload.
func TrimPktNewline(payload []byte) []byte {
	return bytes.TrimSuffix(payload, []byte("\n"))
}
