package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

func NewUser(name, email, role string, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	return user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
	}
}

func NewMessage(authorID, content string, createdAt time.Time) chat.Message {
	return chat.Message{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		Kind:      chat.KindText,
		CreatedAt: createdAt.UTC(),
	}
}

func NewLesson(title, subject string, published bool) school.Lesson {
	return school.Lesson{
		ID:        uuid.New().String(),
		Title:     title,
		Subject:   subject,
		Summary:   title + " summary",
		Published: published,
		CreatedAt: time.Now().UTC(),
	}
}

func NewAgendaEntry(title, kind, subject string, due time.Time) school.AgendaEntry {
	return school.AgendaEntry{
		ID:        uuid.New().String(),
		Title:     title,
		Kind:      kind,
		Subject:   subject,
		Due:       due.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

// AssertTextEqual fails with a unified diff on mismatch; plain equality
// output is unreadable for multi-line prompt/reply fixtures.
func AssertTextEqual(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("text mismatch:\n%s", diff)
}
