package proto

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Parser reconstructs messages from an arbitrarily fragmented or
// coalesced byte stream. Each connection owns exactly one Parser; it
// is not safe for concurrent use.
type Parser struct {
	buf          []byte
	headerLength int          // set once the length prefix is read, 0 when unset
	header       *frameHeader // set once the header is decoded, nil when unset
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed appends raw bytes to the buffer. It never parses.
func (p *Parser) Feed(data []byte) {
	if len(data) == 0 {
		return
	}
	p.buf = append(p.buf, data...)
}

// Buffered reports how many unconsumed bytes are held.
func (p *Parser) Buffered() int { return len(p.buf) }

// Next advances the state machine using only buffered bytes and
// returns the next complete message. It returns (nil, nil) when the
// buffer does not complete a frame, preserving all transient state
// for the next Feed. Calling Next repeatedly drains every message a
// single Feed made available.
func (p *Parser) Next() (Message, error) {
	if p.headerLength == 0 {
		if len(p.buf) < lengthPrefixSize {
			return nil, nil
		}
		n, ok := parseLengthPrefix(p.buf[:lengthPrefixSize])
		if !ok {
			// Not four decimal digits. Wait for more bytes rather
			// than fail; a stream that never produces digits stalls
			// here forever.
			return nil, nil
		}
		p.buf = p.buf[lengthPrefixSize:]
		if n == 0 {
			return nil, &FramingError{Part: "header", Err: errors.New("zero-length header")}
		}
		p.headerLength = n
	}

	if p.header == nil {
		if len(p.buf) < p.headerLength {
			return nil, nil
		}
		head, err := decodeHeader(p.buf[:p.headerLength])
		if err != nil {
			return nil, err
		}
		p.buf = p.buf[p.headerLength:]
		p.header = head
	}

	if len(p.buf) < p.header.ContentLength {
		return nil, nil
	}
	content := make([]byte, p.header.ContentLength)
	copy(content, p.buf[:p.header.ContentLength])
	contentType := p.header.ContentType

	// The frame is consumed even when its content fails to decode, so
	// the remaining bytes still line up with the next frame.
	p.buf = p.buf[p.header.ContentLength:]
	p.headerLength = 0
	p.header = nil

	return Decode(contentType, content)
}

func decodeHeader(raw []byte) (*frameHeader, error) {
	var head struct {
		ContentType   *string `json:"content-type"`
		ContentLength *int    `json:"content-length"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &FramingError{Part: "header", Err: err}
	}
	if head.ContentType == nil || head.ContentLength == nil {
		return nil, &FramingError{Part: "header", Err: errors.New("missing content-type or content-length")}
	}
	if *head.ContentLength < 0 {
		return nil, &FramingError{Part: "header", Err: errors.New("negative content-length")}
	}
	return &frameHeader{ContentType: *head.ContentType, ContentLength: *head.ContentLength}, nil
}

func parseLengthPrefix(prefix []byte) (int, bool) {
	for _, c := range prefix {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(string(prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
