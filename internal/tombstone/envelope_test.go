package tombstone

import (
	"bytes"
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestExtractFromEnvelope(t *testing.T) {
	inner := []byte{0x01, 0x02, 0x03}

	var b []byte
	b = appendVarintField(b, 7, 99)
	b = appendStringField(b, 3, "header text")
	b = appendMessageField(b, envelopeFieldTombstone, inner)
	b = appendVarintField(b, 8, 1)

	got, ok, err := ExtractFromEnvelope(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("tombstone not found")
	}
	if !bytes.Equal(got, inner) {
		t.Errorf("payload = %v, want %v", got, inner)
	}
}

func TestExtractFromEnvelope_Absent(t *testing.T) {
	var b []byte
	b = appendVarintField(b, 7, 99)
	b = appendStringField(b, 3, "header text")

	_, ok, err := ExtractFromEnvelope(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("found tombstone in envelope without one")
	}
}

func TestExtractFromEnvelope_Malformed(t *testing.T) {
	// declared length exceeds the remaining payload
	b := protowire.AppendTag(nil, envelopeFieldTombstone, protowire.BytesType)
	b = protowire.AppendVarint(b, 100)
	b = append(b, 0x01)

	if _, _, err := ExtractFromEnvelope(b); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}
