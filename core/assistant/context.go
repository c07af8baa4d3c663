package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/state"
)

// History roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior conversation exchange sent with the completion request.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildLibraryIndex serializes the published lesson/library records: id,
// title, subject label, summary and attachment descriptors. Unpublished
// records never reach the model.
func BuildLibraryIndex(app state.App) string {
	var b strings.Builder
	for _, l := range app.Lessons {
		if !l.Published {
			continue
		}
		fmt.Fprintf(&b, "- lesson id=%s | %s | %s | %s\n", l.ID, l.Title, l.Subject, l.Summary)
	}
	for _, it := range app.Library {
		if !it.Published {
			continue
		}
		fmt.Fprintf(&b, "- material id=%s | %s | %s | %s", it.ID, it.Title, it.Subject, it.Summary)
		if len(it.Attachments) > 0 {
			descs := make([]string, 0, len(it.Attachments))
			for _, a := range it.Attachments {
				descs = append(descs, fmt.Sprintf("%s (%s; id=%s; url=%s)", a.Name, a.Kind, a.ID, a.URL))
			}
			fmt.Fprintf(&b, " | attachments: %s", strings.Join(descs, ", "))
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(the library is empty)"
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildObligationsIndex serializes the active obligations: title, type, due
// date and subject label for every pending agenda entry still ahead of `now`.
func BuildObligationsIndex(app state.App, now time.Time) string {
	var b strings.Builder
	for _, e := range app.Agenda {
		if e.Done || e.Due.Before(now) {
			continue
		}
		fmt.Fprintf(&b, "- %s | %s | due %s | %s\n", e.Title, e.Kind, e.Due.Format("2006-01-02"), e.Subject)
	}
	if b.Len() == 0 {
		return "(no active obligations)"
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildSystemPrompt composes the single system instruction: both serialized
// indices plus the fixed behavioral rules, including the literal tag
// directives the reply parser understands.
func BuildSystemPrompt(app state.App, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are the class assistant of a shared classroom. Answer briefly, ")
	b.WriteString("in the same language as the question.\n\n")
	b.WriteString("CLASS LIBRARY:\n")
	b.WriteString(BuildLibraryIndex(app))
	b.WriteString("\n\nACTIVE OBLIGATIONS:\n")
	b.WriteString(BuildObligationsIndex(app, now))
	b.WriteString("\n\nRules:\n")
	b.WriteString("- If a lesson has no active obligations, answer exactly: ")
	b.WriteString("\"There are no upcoming obligations for this lesson.\"\n")
	b.WriteString("- If the requested lesson or material does not appear above, reply with the single token ")
	b.WriteString(MissingContentToken)
	b.WriteString(" and nothing else.\n")
	b.WriteString("- When your answer points at library materials, append one tag of the exact form ")
	b.WriteString("[ATTACH_RESOURCES: <json array>] where the array holds objects with id, title and url ")
	b.WriteString("taken from the library above.\n")
	b.WriteString("- To show a single image, end the message with ")
	b.WriteString(imageMarker)
	b.WriteString("<url>.")
	return b.String()
}

// BuildHistory bounds the prior conversation at `limit` turns, maps each
// message to its role and strips the control prefix from proxied content.
func BuildHistory(msgs []chat.Message, limit int) []Turn {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		role := RoleUser
		if m.FromAssistant() {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Content: m.DisplayContent()})
	}
	return turns
}
