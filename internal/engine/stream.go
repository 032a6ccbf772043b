package engine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// StreamParser decodes newline-delimited JSON generation events and keeps
// only the most recent one.
type StreamParser struct {
	last   *model.GenerationEvent
	events int
}

// Feed decodes a single chunk. Blank chunks are ignored. A chunk that is not
// valid JSON is a protocol violation and fails the probe.
func (p *StreamParser) Feed(chunk []byte) error {
	chunk = bytes.TrimSpace(chunk)
	if len(chunk) == 0 {
		return nil
	}

	var ev model.GenerationEvent
	if err := json.Unmarshal(chunk, &ev); err != nil {
		return &ProbeError{Kind: model.KindMalformedStreamChunk, Err: err}
	}
	p.last = &ev
	p.events++
	return nil
}

// Last returns the most recently decoded event, or nil if none was seen.
func (p *StreamParser) Last() *model.GenerationEvent {
	return p.last
}

// Events returns how many events were decoded.
func (p *StreamParser) Events() int {
	return p.events
}

// ParseStream feeds every line of r to a new StreamParser.
// The parser is returned even on error so a truncated stream still exposes
// the last event it delivered. Read errors are returned unwrapped; decode
// errors are *ProbeError with KindMalformedStreamChunk.
func ParseStream(r io.Reader) (*StreamParser, error) {
	p := &StreamParser{}
	// The terminal event carries the full context array, so lines can be
	// much larger than bufio.Scanner's default token size.
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, readErr := br.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			// A line cut off by a dropped connection is not a protocol error.
			return p, readErr
		}
		if len(line) > 0 {
			if err := p.Feed(line); err != nil {
				return p, err
			}
		}
		if readErr != nil {
			return p, nil
		}
	}
}
