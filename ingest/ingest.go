// Package ingest decodes allocation event streams and drives a
// History's record entry points in time order.
//
// The wire format is JSON: either a top-level array of event objects or
// a plain concatenation of objects (NDJSON works). Each event is
//
//	{"operation": "malloc", "address": 4096, "size": 16, "heap": 0}
//	{"operation": "free", "address": 4096}
//	{"operation": "realloc", "address": 4096, "new_address": 8192, "size": 32}
//
// The heap field defaults to 0 when absent. Gzipped streams are
// detected by their magic bytes and decompressed transparently.
//
// Stream-decoding failures are the adapter's errors and stop ingestion;
// allocator-protocol violations (double allocs, bad frees) are not
// errors here — the event log records them as conflicts and ingestion
// continues.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// ErrUnknownOperation is returned when an event carries an operation
// name other than malloc/alloc, free or realloc.
var ErrUnknownOperation = errors.New("unknown operation")

// Recorder is the sink for decoded events. *heapview.History
// implements it.
type Recorder interface {
	RecordMalloc(addr, size uint64, heapID uint8) error
	RecordFree(addr uint64, heapID uint8)
	RecordRealloc(oldAddr, newAddr, size uint64, heapID uint8) error
}

// Event is one decoded allocation event.
type Event struct {
	Operation  string `json:"operation"`
	Address    uint64 `json:"address"`
	NewAddress uint64 `json:"new_address"`
	Size       uint64 `json:"size"`
	Heap       uint8  `json:"heap"`
}

// LoadJSONStream decodes events from r and applies them to rec in
// stream order. It returns the number of events applied; on error that
// count covers the events applied before the failure.
func LoadJSONStream(r io.Reader, rec Recorder) (int, error) {
	br := bufio.NewReader(r)

	src, err := sniffGzip(br)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	buf, ok := src.(*bufio.Reader)
	if !ok {
		buf = bufio.NewReader(src)
	}

	first, err := firstByte(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil // empty stream
		}
		return 0, fmt.Errorf("ingest: %w", err)
	}

	dec := gojson.NewDecoder(buf)
	if first == '[' {
		return loadArray(dec, rec)
	}
	return loadConcatenated(dec, rec)
}

func loadArray(dec *gojson.Decoder, rec Recorder) (int, error) {
	if _, err := dec.Token(); err != nil { // consume '['
		return 0, fmt.Errorf("ingest: %w", err)
	}
	n := 0
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return n, fmt.Errorf("ingest: record %d: %w", n, err)
		}
		if err := apply(rec, ev, n); err != nil {
			return n, err
		}
		n++
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return n, fmt.Errorf("ingest: %w", err)
	}
	return n, nil
}

func loadConcatenated(dec *gojson.Decoder, rec Recorder) (int, error) {
	n := 0
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("ingest: record %d: %w", n, err)
		}
		if err := apply(rec, ev, n); err != nil {
			return n, err
		}
		n++
	}
}

func apply(rec Recorder, ev Event, n int) error {
	switch ev.Operation {
	case "malloc", "alloc":
		if err := rec.RecordMalloc(ev.Address, ev.Size, ev.Heap); err != nil {
			return fmt.Errorf("ingest: record %d: %w", n, err)
		}
	case "free":
		rec.RecordFree(ev.Address, ev.Heap)
	case "realloc":
		if err := rec.RecordRealloc(ev.Address, ev.NewAddress, ev.Size, ev.Heap); err != nil {
			return fmt.Errorf("ingest: record %d: %w", n, err)
		}
	default:
		return fmt.Errorf("ingest: record %d: %w: %q", n, ErrUnknownOperation, ev.Operation)
	}
	return nil
}

// sniffGzip peeks at the stream's magic bytes and wraps it in a gzip
// reader when they match. Streams shorter than two bytes pass through
// untouched.
func sniffGzip(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(2)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return br, nil
		}
		return nil, err
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

// firstByte returns the first non-whitespace byte without consuming it.
// Leading whitespace is consumed, which the JSON decoder tolerates.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
