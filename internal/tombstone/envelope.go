package tombstone

import "google.golang.org/protobuf/encoding/protowire"

// Queued entries wrap the tombstone in an enclosing record together with
// header fields this pipeline does not care about.
const envelopeFieldTombstone = 1

// ExtractFromEnvelope returns the raw tombstone bytes embedded in a queued
// entry, skipping all other fields. ok is false when the entry carries no
// tombstone at all.
func ExtractFromEnvelope(data []byte) (tombstone []byte, ok bool, err error) {
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return nil, false, ErrMalformed
		}
		rest = rest[n:]

		if num == envelopeFieldTombstone && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(rest)
			if m < 0 {
				return nil, false, ErrMalformed
			}
			return v, true, nil
		}

		m := protowire.ConsumeFieldValue(num, typ, rest)
		if m < 0 {
			return nil, false, ErrMalformed
		}
		rest = rest[m:]
	}
	return nil, false, nil
}
