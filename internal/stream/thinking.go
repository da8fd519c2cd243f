package stream

import "strings"

var thinkingTags = [][2]string{
	{"<thinking>", "</thinking>"},
	{"<think>", "</think>"},
}

// ExtractThinking moves the first embedded <thinking>…</thinking> (or
// <think>…</think>) block out of content. An unclosed block runs to the end.
func ExtractThinking(content string) (cleaned string, reasoning string) {
	for _, tag := range thinkingTags {
		open := strings.Index(content, tag[0])
		if open < 0 {
			continue
		}
		before := content[:open]
		rest := content[open+len(tag[0]):]
		end := strings.Index(rest, tag[1])
		if end < 0 {
			return strings.TrimSpace(before), strings.TrimSpace(rest)
		}
		after := rest[end+len(tag[1]):]
		return strings.TrimSpace(before + after), strings.TrimSpace(rest[:end])
	}
	return content, ""
}

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// Segment is a piece of streamed content routed to either the visible
// answer or the reasoning channel.
type Segment struct {
	Reasoning bool
	Text      string
}

// ThinkParser splits streamed content on <think> tags. A trailing partial tag
// is held back until the next Feed or Flush decides what it is.
type ThinkParser struct {
	buffer  string
	inThink bool
}

func (p *ThinkParser) Feed(text string) []Segment {
	p.buffer += text
	var out []Segment
	for {
		if p.inThink {
			if idx := strings.Index(p.buffer, thinkCloseTag); idx >= 0 {
				out = appendSegment(out, true, p.buffer[:idx])
				p.buffer = p.buffer[idx+len(thinkCloseTag):]
				p.inThink = false
				continue
			}
			hold := trailingTagPrefixLen(p.buffer, thinkCloseTag)
			out = appendSegment(out, true, p.buffer[:len(p.buffer)-hold])
			p.buffer = p.buffer[len(p.buffer)-hold:]
			return out
		}

		if idx := strings.Index(p.buffer, thinkOpenTag); idx >= 0 {
			out = appendSegment(out, false, p.buffer[:idx])
			p.buffer = p.buffer[idx+len(thinkOpenTag):]
			p.inThink = true
			continue
		}
		hold := trailingTagPrefixLen(p.buffer, thinkOpenTag)
		out = appendSegment(out, false, p.buffer[:len(p.buffer)-hold])
		p.buffer = p.buffer[len(p.buffer)-hold:]
		return out
	}
}

// Flush releases any held-back text.
func (p *ThinkParser) Flush() []Segment {
	out := appendSegment(nil, p.inThink, p.buffer)
	p.buffer = ""
	return out
}

func appendSegment(out []Segment, reasoning bool, text string) []Segment {
	if text == "" {
		return out
	}
	if n := len(out); n > 0 && out[n-1].Reasoning == reasoning {
		out[n-1].Text += text
		return out
	}
	return append(out, Segment{Reasoning: reasoning, Text: text})
}

func trailingTagPrefixLen(buffer string, tag string) int {
	limit := len(tag) - 1
	if len(buffer) < limit {
		limit = len(buffer)
	}
	for n := limit; n > 0; n-- {
		if strings.HasSuffix(buffer, tag[:n]) {
			return n
		}
	}
	return 0
}
