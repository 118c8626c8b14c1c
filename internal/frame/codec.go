// Package frame implements the editor wire format.
//
// Server to client frames are a 4-byte big-endian JSON length, the JSON bytes,
// and then every attached blob as its own 4-byte big-endian length plus raw
// bytes. Client to server messages are bare UTF-8 JSON without any framing.
package frame

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

const lengthSize = 4

var (
	// ErrMalformedFrame is returned when inbound bytes are not UTF-8 JSON.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrTruncated is returned when a binary frame ends inside a segment.
	ErrTruncated = errors.New("truncated frame")
	// ErrTooLarge is returned when a segment does not fit a uint32 length.
	ErrTooLarge = errors.New("frame segment too large")
)

// Encode marshals v to JSON and packs it together with blobs.
func Encode(v any, blobs ...[]byte) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame payload: %w", err)
	}
	return EncodeRaw(payload, blobs...)
}

// EncodeRaw packs already-encoded JSON and blobs.
func EncodeRaw(payload []byte, blobs ...[]byte) ([]byte, error) {
	size := lengthSize + len(payload)
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}
	for _, b := range blobs {
		if uint64(len(b)) > math.MaxUint32 {
			return nil, ErrTooLarge
		}
		size += lengthSize + len(b)
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	for _, b := range blobs {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
		buf = append(buf, b...)
	}
	return buf, nil
}

// Decode validates an inbound client message and returns it as raw JSON.
func Decode(data []byte) (json.RawMessage, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrMalformedFrame)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	return json.RawMessage(data), nil
}

// Unpack splits a binary frame produced by Encode into its JSON segment and blobs.
func Unpack(data []byte) (json.RawMessage, [][]byte, error) {
	payload, rest, err := readSegment(data)
	if err != nil {
		return nil, nil, err
	}
	if _, err := Decode(payload); err != nil {
		return nil, nil, err
	}

	blobs := make([][]byte, 0)
	for len(rest) > 0 {
		var blob []byte
		blob, rest, err = readSegment(rest)
		if err != nil {
			return nil, nil, err
		}
		blobs = append(blobs, blob)
	}
	return json.RawMessage(payload), blobs, nil
}

func readSegment(data []byte) ([]byte, []byte, error) {
	if len(data) < lengthSize {
		return nil, nil, fmt.Errorf("%w: missing length prefix", ErrTruncated)
	}
	n := binary.BigEndian.Uint32(data[:lengthSize])
	data = data[lengthSize:]
	if uint64(len(data)) < uint64(n) {
		return nil, nil, fmt.Errorf("%w: want %d bytes, have %d", ErrTruncated, n, len(data))
	}
	return data[:n:n], data[n:], nil
}
