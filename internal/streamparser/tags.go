package streamparser

import "strings"

// TagResult is the outcome of feeding a chunk through a tag extractor.
type TagResult struct {
	VisibleText string
	Extracted   []string
}

// InlineTagParser extracts non-nested, literal `<open>...</close>` spans
// that may appear anywhere inline, e.g. <oai-mem-citation>...</oai-mem-citation>.
// It maintains a small byte buffer holding a possible in-progress
// open-marker prefix so a marker split across chunk boundaries is still
// recognized.
type InlineTagParser struct {
	open, close string

	buf      strings.Builder // bytes not yet classified as visible or tag
	inTag    bool
	tagBody  strings.Builder
}

// NewInlineTagParser constructs a parser for the given open/close markers.
func NewInlineTagParser(open, close string) *InlineTagParser {
	return &InlineTagParser{open: open, close: close}
}

// Push consumes a chunk and returns the visible text and any fully-closed
// tag bodies extracted so far.
func (p *InlineTagParser) Push(chunk string) TagResult {
	p.buf.WriteString(chunk)
	return p.drain(false)
}

// Finish flushes remaining state at EOF. An unterminated open tag is
// auto-closed and its buffered body is emitted as extracted.
func (p *InlineTagParser) Finish() TagResult {
	res := p.drain(true)
	if p.inTag {
		res.Extracted = append(res.Extracted, p.tagBody.String())
		p.tagBody.Reset()
		p.inTag = false
	}
	res.VisibleText += p.buf.String()
	p.buf.Reset()
	return res
}

func (p *InlineTagParser) drain(atEOF bool) TagResult {
	var res TagResult
	for {
		data := p.buf.String()
		if p.inTag {
			idx := strings.Index(data, p.close)
			if idx < 0 {
				// Might still be accumulating the body; nothing to flush
				// unless we can prove no prefix of `close` is pending.
				if !atEOF && hasPartialSuffix(data, p.close) {
					return res
				}
				p.tagBody.WriteString(data)
				p.buf.Reset()
				return res
			}
			p.tagBody.WriteString(data[:idx])
			res.Extracted = append(res.Extracted, p.tagBody.String())
			p.tagBody.Reset()
			p.inTag = false
			p.buf.Reset()
			p.buf.WriteString(data[idx+len(p.close):])
			continue
		}

		idx := strings.Index(data, p.open)
		if idx < 0 {
			if !atEOF && hasPartialSuffix(data, p.open) {
				// Hold back a possible partial open marker.
				keep := partialSuffixLen(data, p.open)
				res.VisibleText += data[:len(data)-keep]
				p.buf.Reset()
				p.buf.WriteString(data[len(data)-keep:])
				return res
			}
			res.VisibleText += data
			p.buf.Reset()
			return res
		}
		res.VisibleText += data[:idx]
		p.inTag = true
		p.buf.Reset()
		p.buf.WriteString(data[idx+len(p.open):])
	}
}

// hasPartialSuffix reports whether some non-empty prefix of marker matches
// a suffix of data -- i.e. data might continue into marker on the next push.
func hasPartialSuffix(data, marker string) bool {
	return partialSuffixLen(data, marker) > 0
}

func partialSuffixLen(data, marker string) int {
	max := len(marker) - 1
	if max > len(data) {
		max = len(data)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(data, marker[:n]) {
			return n
		}
	}
	return 0
}

// LineTagParser extracts tag blocks whose open/close markers must each be
// the sole content of their own line, e.g. <proposed_plan>...</proposed_plan>.
// Lines not matching pass through unchanged. A partial final line is
// buffered until a newline arrives.
type LineTagParser struct {
	open, close string

	lineBuf strings.Builder
	inTag   bool
	body    strings.Builder
}

// NewLineTagParser constructs a parser for the given open/close line markers.
func NewLineTagParser(open, close string) *LineTagParser {
	return &LineTagParser{open: open, close: close}
}

// Push consumes a chunk and returns completed lines' results.
func (p *LineTagParser) Push(chunk string) TagResult {
	var res TagResult
	p.lineBuf.WriteString(chunk)
	for {
		data := p.lineBuf.String()
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			return res
		}
		line := data[:idx]
		p.lineBuf.Reset()
		p.lineBuf.WriteString(data[idx+1:])
		p.consumeLine(line, true, &res)
	}
}

// Finish flushes any trailing partial line (treated as a complete line
// with no trailing newline) and closes an unterminated tag.
func (p *LineTagParser) Finish() TagResult {
	var res TagResult
	if p.lineBuf.Len() > 0 {
		p.consumeLine(p.lineBuf.String(), false, &res)
		p.lineBuf.Reset()
	}
	if p.inTag {
		res.Extracted = append(res.Extracted, p.body.String())
		p.body.Reset()
		p.inTag = false
	}
	return res
}

// consumeLine classifies one line. hadNewline is false only for the final
// fragment flushed from Finish when the source never terminated it with
// '\n' -- in that case the passthrough default case must not invent one,
// or concatenating VisibleText across the whole stream would produce more
// bytes than the original input (§8 invariant 2).
func (p *LineTagParser) consumeLine(line string, hadNewline bool, res *TagResult) {
	switch {
	case !p.inTag && line == p.open:
		p.inTag = true
		p.body.Reset()
	case p.inTag && line == p.close:
		res.Extracted = append(res.Extracted, p.body.String())
		p.body.Reset()
		p.inTag = false
	case p.inTag:
		if p.body.Len() > 0 {
			p.body.WriteByte('\n')
		}
		p.body.WriteString(line)
	case hadNewline:
		res.VisibleText += line + "\n"
	default:
		res.VisibleText += line
	}
}
