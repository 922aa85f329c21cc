package chat

import (
	"encoding/json"
	"strings"
)

type legacyTag struct {
	name string
	kind Kind
}

// legacyTags maps the bracket tag names some model prompts still emit onto
// envelope kinds.
var legacyTags = []legacyTag{
	{"ASSESSMENT_TABLE", KindAssessmentTable},
	{"CHART_DATA", KindChartData},
	{"TIMELINE_DATA", KindTimelineData},
	{"TREND_DATA", KindTrendData},
}

// ParseTagged splits model output into plain text and structured blocks.
//
// Each closed [TAG]...[/TAG] segment is cut out of the text. Its body
// becomes a Block if it decodes and validates, otherwise it is dropped.
// A segment that fills its own line also takes the newline after it.
// Every other byte, including an unclosed opening tag, is kept as written.
func ParseTagged(text string) (string, []Block) {
	var (
		out    strings.Builder
		blocks []Block
		rest   = text
	)
	for {
		idx, tag := nextOpenTag(rest)
		if idx < 0 {
			out.WriteString(rest)
			break
		}
		open := "[" + tag.name + "]"
		closeTag := "[/" + tag.name + "]"
		bodyStart := idx + len(open)
		end := strings.Index(rest[bodyStart:], closeTag)
		if end < 0 {
			// unclosed: keep the opening tag as text and look further on
			out.WriteString(rest[:bodyStart])
			rest = rest[bodyStart:]
			continue
		}
		out.WriteString(rest[:idx])
		body := rest[bodyStart : bodyStart+end]
		rest = rest[bodyStart+end+len(closeTag):]
		if atLineStart(out.String()) {
			rest = strings.TrimPrefix(rest, "\n")
		}

		if b, ok := decodeSegment(tag.kind, body); ok {
			blocks = append(blocks, b)
		}
	}
	return out.String(), blocks
}

func atLineStart(s string) bool {
	return s == "" || strings.HasSuffix(s, "\n")
}

func nextOpenTag(s string) (int, legacyTag) {
	best := -1
	var found legacyTag
	for _, t := range legacyTags {
		if i := strings.Index(s, "["+t.name+"]"); i >= 0 && (best < 0 || i < best) {
			best = i
			found = t
		}
	}
	return best, found
}

func decodeSegment(kind Kind, body string) (Block, bool) {
	body = stripCodeFence(strings.TrimSpace(body))
	if !json.Valid([]byte(body)) {
		return Block{}, false
	}
	b := Block{Kind: kind, Payload: json.RawMessage(body)}
	if err := b.Validate(); err != nil {
		return Block{}, false
	}
	return b, true
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

// FormatTagged renders a block in the bracket-tag form, for clients that
// only understand the legacy text protocol.
func FormatTagged(b Block) string {
	for _, t := range legacyTags {
		if t.kind == b.Kind {
			return "[" + t.name + "]" + string(b.Payload) + "[/" + t.name + "]"
		}
	}
	return ""
}
