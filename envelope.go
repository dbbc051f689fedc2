// envelope.go: binary wire layout for byte-mode backends
//
// Fixed 36-byte little-endian header, then payload. See spec §3:
//
//	0   i64  createdAtTicks
//	8   i64  absoluteExpirationTicks  (0 = none)
//	16  i64  slidingWindowTicks       (0 = none)
//	24  i64  staleWindowTicks         (0 = none)
//	32  i32  payloadLength (>= 0)
//	36  ...  payload bytes
//
// No version byte is defined. A future layout change must prepend a magic
// prefix and bump a version; this codec intentionally has no negotiation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"encoding/binary"
	"time"
)

// envelopeHeaderLen is the fixed header size in bytes.
const envelopeHeaderLen = 36

// encodeEnvelope serializes metadata and payload into the wire layout.
func encodeEnvelope(m EntryMetadata, payload []byte) []byte {
	buf := make([]byte, envelopeHeaderLen+len(payload))

	binary.LittleEndian.PutUint64(buf[0:8], uint64(m.CreatedAt.UnixNano()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ticksOf(m.AbsoluteExpiration)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(m.SlidingWindow.Nanoseconds()))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(m.StaleWindow.Nanoseconds()))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(len(payload)))
	copy(buf[envelopeHeaderLen:], payload)

	return buf
}

// decodeEnvelope parses the wire layout back into metadata and payload.
// It rejects: blobs shorter than the header, negative payload length (not
// representable in the unsigned wire field, but a truncated/garbled buffer
// can still under-report), and truncated payloads.
func decodeEnvelope(blob []byte) (EntryMetadata, []byte, error) {
	if len(blob) < envelopeHeaderLen {
		return EntryMetadata{}, nil, NewErrEnvelopeDecode("", "blob shorter than header")
	}

	createdAtTicks := int64(binary.LittleEndian.Uint64(blob[0:8]))
	absExpTicks := int64(binary.LittleEndian.Uint64(blob[8:16]))
	slidingTicks := int64(binary.LittleEndian.Uint64(blob[16:24]))
	staleTicks := int64(binary.LittleEndian.Uint64(blob[24:32]))
	payloadLen := int32(binary.LittleEndian.Uint32(blob[32:36]))

	if payloadLen < 0 {
		return EntryMetadata{}, nil, NewErrEnvelopeDecode("", "negative payload length")
	}
	if len(blob) < envelopeHeaderLen+int(payloadLen) {
		return EntryMetadata{}, nil, NewErrEnvelopeDecode("", "truncated payload")
	}

	meta := EntryMetadata{
		CreatedAt:          timeFromTicks(createdAtTicks),
		AbsoluteExpiration: timeFromTicks(absExpTicks),
		SlidingWindow:      time.Duration(slidingTicks),
		StaleWindow:        time.Duration(staleTicks),
	}

	payload := make([]byte, payloadLen)
	copy(payload, blob[envelopeHeaderLen:envelopeHeaderLen+int(payloadLen)])

	return meta, payload, nil
}

// ticksOf converts a zero-sentinel-aware time.Time into the wire's
// nanosecond tick representation (0 means "never").
func ticksOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// timeFromTicks is the inverse of ticksOf.
func timeFromTicks(ticks int64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	return time.Unix(0, ticks).UTC()
}
