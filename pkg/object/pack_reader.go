package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrUnresolved marks a pack that still contains deltified entries after the
// resolve phase ran out of usable bases.
var ErrUnresolved = errors.New("pack contains unresolvable deltas")

// PackEntry is one fully resolved object from a pack stream.
type PackEntry struct {
	Type   ObjectType
	Hash   Hash
	Offset uint64
	Data   []byte
}

// PackFile is the decoded content of a full pack stream.
type PackFile struct {
	Header   PackHeader
	Entries  []PackEntry
	Checksum Hash
}

// packRecord is the read-phase view of one entry: raw wire type, position,
// base locator for deltas, and the inflated payload (delta instructions
// until resolved, object bytes after).
type packRecord struct {
	rawType    PackObjectType
	offset     uint64
	baseOffset uint64
	baseHash   Hash
	data       []byte

	objType ObjectType
	hash    Hash
	done    bool
}

// ReadPack parses a complete pack byte slice, verifies the trailing SHA-1,
// and resolves every delta to its final object.
//
// Resolution is two-phase: a single scan inflates all entries and records
// delta base locators; then a worklist pass assigns types and digests,
// releasing each delta as soon as its base resolves. Chains of any depth
// resolve without recursion, and a delta whose base never appears leaves
// the pack ErrUnresolved.
func ReadPack(data []byte) (*PackFile, error) {
	if len(data) < packHeaderSize+RawHashLen {
		return nil, fmt.Errorf("pack too short: %d bytes", len(data))
	}

	payload := data[:len(data)-RawHashLen]
	trailer := data[len(data)-RawHashLen:]

	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("pack checksum mismatch: computed %x, trailer %x", sum, trailer)
	}

	header, err := UnmarshalPackHeader(payload[:packHeaderSize])
	if err != nil {
		return nil, err
	}

	records, err := scanPackEntries(payload, header.NumObjects)
	if err != nil {
		return nil, err
	}
	if err := resolvePackEntries(records); err != nil {
		return nil, err
	}

	entries := make([]PackEntry, len(records))
	for i, rec := range records {
		entries[i] = PackEntry{
			Type:   rec.objType,
			Hash:   rec.hash,
			Offset: rec.offset,
			Data:   rec.data,
		}
	}

	return &PackFile{
		Header:   *header,
		Entries:  entries,
		Checksum: Hash(hex.EncodeToString(trailer)),
	}, nil
}

// ReadPackFromReader reads a complete pack stream from r and delegates to
// ReadPack for decode and verification.
func ReadPackFromReader(r io.Reader) (*PackFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pack stream: %w", err)
	}
	return ReadPack(data)
}

// scanPackEntries is the read phase: walk every entry, decode its header
// and optional delta base specifier, and inflate its zlib stream. The
// number of compressed bytes each stream consumed positions the next entry.
func scanPackEntries(payload []byte, numObjects uint32) ([]*packRecord, error) {
	offset := uint64(packHeaderSize)
	records := make([]*packRecord, 0, numObjects)

	for i := uint32(0); i < numObjects; i++ {
		rec := &packRecord{offset: offset}

		objType, size, n, err := decodePackEntryHeader(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w", i, err)
		}
		rec.rawType = objType
		pos := offset + uint64(n)

		switch objType {
		case PackOfsDelta:
			distance, n, err := decodeOfsDeltaDistance(payload[pos:])
			if err != nil {
				return nil, fmt.Errorf("pack entry %d: %w", i, err)
			}
			pos += uint64(n)
			if distance == 0 || distance > rec.offset {
				return nil, fmt.Errorf("pack entry %d: ofs-delta distance %d out of range", i, distance)
			}
			rec.baseOffset = rec.offset - distance
		case PackRefDelta:
			if pos+RawHashLen > uint64(len(payload)) {
				return nil, fmt.Errorf("pack entry %d: truncated ref-delta base", i)
			}
			h, err := HashFromRaw(payload[pos : pos+RawHashLen])
			if err != nil {
				return nil, fmt.Errorf("pack entry %d: %w", i, err)
			}
			rec.baseHash = h
			pos += RawHashLen
		}

		if pos >= uint64(len(payload)) {
			return nil, fmt.Errorf("pack entry %d: missing compressed payload", i)
		}
		raw, consumed, err := inflateStream(payload[pos:])
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w", i, err)
		}
		if uint64(len(raw)) != size {
			return nil, fmt.Errorf("pack entry %d: size mismatch header=%d decoded=%d", i, size, len(raw))
		}
		rec.data = raw
		offset = pos + uint64(consumed)
		records = append(records, rec)
	}

	if offset != uint64(len(payload)) {
		return nil, fmt.Errorf("pack has %d trailing undecoded bytes", uint64(len(payload))-offset)
	}
	return records, nil
}

// resolvePackEntries is the resolve phase. Non-delta entries seed a
// worklist; each delta registers as a dependent of its base (by offset or
// by digest) and is released the moment the base resolves. No pass rescans
// the whole set, so long chains stay linear.
func resolvePackEntries(records []*packRecord) error {
	byOffset := make(map[uint64]*packRecord, len(records))
	byHash := make(map[Hash]*packRecord, len(records))
	dependents := make(map[*packRecord][]*packRecord)

	for _, rec := range records {
		byOffset[rec.offset] = rec
	}

	var queue []*packRecord
	finish := func(rec *packRecord, objType ObjectType, data []byte) {
		rec.objType = objType
		rec.data = data
		rec.hash = HashObject(objType, data)
		rec.done = true
		byHash[rec.hash] = rec
		queue = append(queue, rec)
	}

	for _, rec := range records {
		if rec.rawType.IsDelta() {
			continue
		}
		objType, ok := rec.rawType.ObjectType()
		if !ok {
			return fmt.Errorf("pack entry at offset %d: unsupported type %d", rec.offset, rec.rawType)
		}
		finish(rec, objType, rec.data)
	}

	// Register deltas against their bases; a ref-delta whose base already
	// resolved waits on that base record like an ofs-delta does.
	pending := 0
	unbound := make(map[Hash][]*packRecord)
	for _, rec := range records {
		if !rec.rawType.IsDelta() {
			continue
		}
		var base *packRecord
		switch rec.rawType {
		case PackOfsDelta:
			b, ok := byOffset[rec.baseOffset]
			if !ok {
				return fmt.Errorf("%w: no entry at base offset %d", ErrUnresolved, rec.baseOffset)
			}
			base = b
		case PackRefDelta:
			if b, ok := byHash[rec.baseHash]; ok {
				base = b
			}
		}

		pending++
		if base == nil {
			// Ref-delta base not resolved yet; it may appear later in the
			// worklist. Key dependents by the awaited digest.
			unbound[rec.baseHash] = append(unbound[rec.baseHash], rec)
			continue
		}
		dependents[base] = append(dependents[base], rec)
	}

	resolveAgainst := func(rec, base *packRecord) error {
		result, err := applyDelta(base.data, rec.data)
		if err != nil {
			return fmt.Errorf("pack entry at offset %d: %w", rec.offset, err)
		}
		finish(rec, base.objType, result)
		pending--
		return nil
	}

	for len(queue) > 0 {
		base := queue[0]
		queue = queue[1:]

		waiting := dependents[base]
		delete(dependents, base)

		// Newly surfaced digest releases the ref-deltas waiting on it.
		if recs, ok := unbound[base.hash]; ok {
			waiting = append(waiting, recs...)
			delete(unbound, base.hash)
		}

		for _, rec := range waiting {
			if err := resolveAgainst(rec, base); err != nil {
				return err
			}
		}
	}

	if pending > 0 {
		return fmt.Errorf("%w: %d entries remain deltified", ErrUnresolved, pending)
	}
	return nil
}
