package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrDeltaCorrupt marks a delta stream whose sizes or instructions do not
// line up with its base.
var ErrDeltaCorrupt = errors.New("delta corrupt")

func encodeDeltaVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func decodeDeltaVarint(r io.ByteReader) (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("delta varint too large")
		}
	}
}

// encodeOfsDeltaDistance encodes a backward distance for OFS_DELTA entries.
func encodeOfsDeltaDistance(distance uint64) []byte {
	if distance == 0 {
		return []byte{0}
	}
	b := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		b = append([]byte{byte((distance & 0x7f) | 0x80)}, b...)
	}
	return b
}

// decodeOfsDeltaDistance decodes the backward distance that locates an
// ofs-delta's base: the first byte seeds the low 7 bits, and each
// continuation byte applies ((value+1)<<7)|low7.
func decodeOfsDeltaDistance(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("ofs-delta distance truncated")
	}
	i := 0
	c := data[i]
	i++
	offset := uint64(c & 0x7f)
	for c&0x80 != 0 {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("ofs-delta distance truncated")
		}
		c = data[i]
		i++
		offset = ((offset + 1) << 7) | uint64(c&0x7f)
	}
	return offset, i, nil
}

// buildInsertOnlyDelta returns a valid Git delta stream by encoding the
// target object as literal insert chunks. Used by the pack writer; it trades
// compression ratio for deterministic output.
func buildInsertOnlyDelta(base, target []byte) []byte {
	var out bytes.Buffer
	out.Write(encodeDeltaVarint(uint64(len(base))))
	out.Write(encodeDeltaVarint(uint64(len(target))))

	for pos := 0; pos < len(target); {
		chunk := len(target) - pos
		if chunk > 127 {
			chunk = 127
		}
		out.WriteByte(byte(chunk))
		out.Write(target[pos : pos+chunk])
		pos += chunk
	}
	return out.Bytes()
}

// applyDelta applies Git delta instructions to base and returns the result.
//
// The stream starts with two base-128 little-endian sizes (expected source
// and target lengths), followed by one-byte instructions: bit 7 set is a
// copy from base (offset bytes selected by bits 0-3, size bytes by bits
// 4-6, a fully-absent size meaning 0x10000); a nonzero low byte is a
// literal insert of that many bytes; zero is reserved.
func applyDelta(base, delta []byte) ([]byte, error) {
	dr := bytes.NewReader(delta)

	baseSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("%w: read base size: %v", ErrDeltaCorrupt, err)
	}
	if int(baseSize) != len(base) {
		return nil, fmt.Errorf("%w: base size mismatch: got %d want %d", ErrDeltaCorrupt, len(base), baseSize)
	}
	resultSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("%w: read result size: %v", ErrDeltaCorrupt, err)
	}

	out := make([]byte, 0, resultSize)
	for dr.Len() > 0 {
		cmd, err := dr.ReadByte()
		if err != nil {
			return nil, err
		}
		if cmd&0x80 != 0 {
			offset, size, err := readDeltaCopyArgs(dr, cmd)
			if err != nil {
				return nil, err
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > int64(len(base)) {
				return nil, fmt.Errorf("%w: copy out of bounds (offset=%d size=%d base=%d)", ErrDeltaCorrupt, offset, size, len(base))
			}
			out = append(out, base[offset:offset+size]...)
			continue
		}

		if cmd == 0 {
			return nil, fmt.Errorf("%w: reserved instruction 0", ErrDeltaCorrupt)
		}
		insert := make([]byte, int(cmd))
		if _, err := io.ReadFull(dr, insert); err != nil {
			return nil, fmt.Errorf("%w: insert: %v", ErrDeltaCorrupt, err)
		}
		out = append(out, insert...)
	}

	if uint64(len(out)) != resultSize {
		return nil, fmt.Errorf("%w: result size mismatch: got %d expected %d", ErrDeltaCorrupt, len(out), resultSize)
	}
	return out, nil
}

// readDeltaCopyArgs reads the offset and size operand bytes selected by a
// copy instruction's low bits. Offset byte k contributes bits 8k..8k+7;
// size bytes likewise.
func readDeltaCopyArgs(r io.ByteReader, cmd byte) (offset, size int64, err error) {
	for k := 0; k < 4; k++ {
		if cmd&(1<<k) == 0 {
			continue
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: copy offset byte %d: %v", ErrDeltaCorrupt, k, err)
		}
		offset |= int64(b) << (8 * k)
	}
	for k := 0; k < 3; k++ {
		if cmd&(1<<(4+k)) == 0 {
			continue
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: copy size byte %d: %v", ErrDeltaCorrupt, k, err)
		}
		size |= int64(b) << (8 * k)
	}
	return offset, size, nil
}
