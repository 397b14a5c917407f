package remote

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodePktLine(t *testing.T) {
	got, err := EncodePktLine([]byte("want abc\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "000dwant abc\n" {
		t.Errorf("encoded = %q", got)
	}

	empty, err := EncodePktLine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "0004" {
		t.Errorf("empty payload = %q", empty)
	}
}

func TestEncodePktLineTooLong(t *testing.T) {
	if _, err := EncodePktLine(bytes.Repeat([]byte{'x'}, MaxPktPayload+1)); err == nil {
		t.Error("oversized payload should fail")
	}
}

func TestDecodePktLines(t *testing.T) {
	stream := []byte("000ffirst line\n00000010second line\n")
	payloads, err := DecodePktLines(stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(payloads))
	}
	if string(TrimPktNewline(payloads[0])) != "first line" {
		t.Errorf("payload 0 = %q", payloads[0])
	}
	if string(TrimPktNewline(payloads[1])) != "second line" {
		t.Errorf("payload 1 = %q", payloads[1])
	}
}

func TestDecodePktLinesFlushOnly(t *testing.T) {
	payloads, err := DecodePktLines([]byte("0000"))
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 0 {
		t.Errorf("flush should emit no payload, got %d", len(payloads))
	}
}

func TestDecodePktLinesReservedLengthStops(t *testing.T) {
	stream := []byte("0008tail0001ignored")
	payloads, err := DecodePktLines(stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 || string(payloads[0]) != "tail" {
		t.Errorf("payloads = %q", payloads)
	}
}

func TestDecodePktLinesTruncatedPacketStops(t *testing.T) {
	stream := []byte("0008okay00ffshort")
	payloads, err := DecodePktLines(stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 || string(payloads[0]) != "okay" {
		t.Errorf("payloads = %q", payloads)
	}
}

func TestDecodePktLinesBadLength(t *testing.T) {
	if _, err := DecodePktLines([]byte("zzzzoops")); err == nil {
		t.Error("non-hex length should fail")
	}
}

func TestDecodePktLinesBinaryVerbatim(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xff, '\n'}
	pkt, err := EncodePktLine(payload)
	if err != nil {
		t.Fatal(err)
	}
	payloads, err := DecodePktLines(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payloads[0], payload) {
		t.Errorf("binary payload altered: %x", payloads[0])
	}
}

func TestPktLineRoundTripMax(t *testing.T) {
	payload := []byte(strings.Repeat("x", MaxPktPayload))
	pkt, err := EncodePktLine(payload)
	if err != nil {
		t.Fatal(err)
	}
	payloads, err := DecodePktLines(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 || !bytes.Equal(payloads[0], payload) {
		t.Error("max-size payload did not round trip")
	}
}
