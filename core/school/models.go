package school

import "time"

// LibraryItem is a catalog entry in the shared lesson library. Attachments
// are fetched as an independent collection and joined in client-side by
// ItemID.
type LibraryItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subject     string       `json:"subject"`
	Summary     string       `json:"summary"`
	Published   bool         `json:"published"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Attachment is a sub-resource of a LibraryItem.
type Attachment struct {
	ID     string `json:"id"`
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
}

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	Summary   string    `json:"summary"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

// AgendaEntry kinds.
const (
	AgendaHomework = "homework"
	AgendaExam     = "exam"
	AgendaEvent    = "event"
)

// AgendaEntry is a calendar obligation: homework, exam or plain event.
type AgendaEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Due       time.Time `json:"due"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// AiLog statuses.
const (
	LogUnresolved = "unresolved"
	LogResolved   = "resolved"
)

// AiLog records an assistant request that could not be satisfied from known
// data, so staff can fill the gap later.
type AiLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
