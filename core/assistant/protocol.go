// Package assistant turns a mention in the group chat into one grounded,
// non-streaming completion and parses the reply's embedded tag protocol.
package assistant

import (
	"encoding/json"
	"strings"

	"github.com/trezcool/darasa/core/chat"
)

// Protocol literals. The model smuggles structured data through a plain-text
// completion channel with these fixed markers; its output is unreliable by
// construction, so parsing always recovers instead of failing.
const (
	// MentionToken triggers the assistant, case-insensitively.
	MentionToken = "@assistant"

	// MissingContentToken signals "no such record"; consumed before any tag
	// scanning.
	MissingContentToken = "NO_CONTENT_FOUND"

	attachMarker = "[ATTACH_RESOURCES:"
	imageMarker  = "SHOW_IMG::"
)

// Fixed user-facing sentences substituted for raw model output.
const (
	MissingApology   = "Sorry, I could not find that in the class materials. I have flagged it so a teacher can add it."
	TransportApology = "Sorry, I cannot answer right now. Please try again in a moment."
)

// Mentioned reports whether an outgoing human message addresses the assistant.
func Mentioned(content string) bool {
	return strings.Contains(strings.ToLower(content), MentionToken)
}

// Reply is the post-processed completion: visible text plus whatever the tag
// protocol carried.
type Reply struct {
	Text      string
	Resources []chat.Resource
	MediaURL  string
	Missing   bool
}

// ParseReply runs the two-token protocol over raw model output:
// missing-content check first, then the resource-attachment tag, then the
// single image marker. A malformed tag payload keeps the visible text intact
// and appends a diagnostic suffix; the raw reply is never dropped silently.
func ParseReply(raw string) Reply {
	r := Reply{Text: strings.TrimSpace(raw)}

	if strings.Contains(raw, MissingContentToken) {
		r.Missing = true
		return r
	}

	if start := strings.Index(raw, attachMarker); start >= 0 {
		rest := raw[start+len(attachMarker):]
		end := strings.LastIndex(rest, "]")
		if end < 0 {
			r.Text = r.Text + diagnosticSuffix("no closing bracket")
			return r
		}
		payload := stripFences(rest[:end])
		var res []chat.Resource
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			r.Text = r.Text + diagnosticSuffix(err.Error())
			return r
		}
		r.Text = strings.TrimSpace(raw[:start])
		r.Resources = res
		return r
	}

	if start := strings.Index(raw, imageMarker); start >= 0 {
		// no delimiter after the marker: the remainder of the string is the URL
		r.Text = strings.TrimSpace(raw[:start])
		r.MediaURL = strings.TrimSpace(raw[start+len(imageMarker):])
		return r
	}

	return r
}

func diagnosticSuffix(detail string) string {
	return "\n\n(attached resources could not be read: " + detail + ")"
}

// stripFences removes code-fence markers the model sometimes wraps the JSON
// payload in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
