package domain

import "time"

// Origin distinguishes how a raw report reached the pipeline.
type Origin string

const (
	// OriginLive means the report was observed at the moment of capture.
	OriginLive Origin = "live"
	// OriginHistorical means the report was replayed from a persisted queue.
	OriginHistorical Origin = "historical"
)

// RawReport is an undecoded crash report as delivered by an event source.
// Consumed once by the decoder, then discarded.
type RawReport struct {
	Bytes     []byte
	Origin    Origin
	Timestamp time.Time
}

// Historical reports whether the report is a replay rather than a live event.
func (r *RawReport) Historical() bool {
	return r.Origin == OriginHistorical
}
