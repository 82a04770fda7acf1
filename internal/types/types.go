// Package types defines the core data structures for the tada task manager.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Millis is an epoch-millisecond timestamp, the wire format used by both
// the database and the export envelope.
type Millis = int64

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() Millis {
	return time.Now().UnixMilli()
}

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// Task represents a single task row, including its subtasks.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Completed     bool       `json:"completed"`
	CompletedAt   *Millis    `json:"completedAt,omitempty"`
	DueDate       *Millis    `json:"dueDate,omitempty"` // may carry a time-of-day component
	Priority      *int       `json:"priority,omitempty"`
	Order         float64    `json:"order"` // fractional sort key within a view
	ListID        string     `json:"listId,omitempty"`
	ListName      string     `json:"listName"`
	Content       string     `json:"content,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Subtasks      []*Subtask `json:"subtasks,omitempty"`
	GroupCategory Bucket     `json:"groupCategory,omitempty"`
	CreatedAt     Millis     `json:"createdAt"`
	UpdatedAt     Millis     `json:"updatedAt"`
}

// Subtask is a child item ordered by its own fractional key.
type Subtask struct {
	ID          string  `json:"id"`
	ParentID    string  `json:"parentId"`
	Title       string  `json:"title"`
	Completed   bool    `json:"completed"`
	CompletedAt *Millis `json:"completedAt,omitempty"`
	DueDate     *Millis `json:"dueDate,omitempty"`
	Order       float64 `json:"order"`
	CreatedAt   Millis  `json:"createdAt"`
	UpdatedAt   Millis  `json:"updatedAt"`
}

// TaskList is a user-defined list (Inbox and other smart views are virtual).
type TaskList struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon,omitempty"`
	Color     string  `json:"color,omitempty"`
	Order     float64 `json:"order"`
	CreatedAt Millis  `json:"createdAt"`
	UpdatedAt Millis  `json:"updatedAt"`
}

// Summary is an AI-generated period summary. The engine never generates
// these; it only moves them through export/import.
type Summary struct {
	ID          string   `json:"id"`
	PeriodKey   string   `json:"periodKey"`
	ListKey     string   `json:"listKey"`
	TaskIDs     []string `json:"taskIds,omitempty"`
	SummaryText string   `json:"summaryText"`
	CreatedAt   Millis   `json:"createdAt"`
	UpdatedAt   Millis   `json:"updatedAt"`
}

// Setting is a single settings row. Value holds the raw JSON text the UI
// stores under the key; the engine treats it as opaque.
type Setting struct {
	Value     string `json:"value"`
	UpdatedAt Millis `json:"updatedAt"`
}

// EnvelopeVersion is the current export format revision.
const EnvelopeVersion = 1

// ExportedData is the versioned envelope wrapping a full dataset.
type ExportedData struct {
	Version   int64   `json:"version"`
	Timestamp Millis  `json:"timestamp"`
	Data      Payload `json:"data"`
}

// Payload is the categorized body of an export envelope.
type Payload struct {
	Tasks     []*Task            `json:"tasks"`
	Lists     []*TaskList        `json:"lists"`
	Summaries []*Summary         `json:"summaries"`
	Settings  map[string]Setting `json:"settings,omitempty"`
}

// reservedListNames cannot be used for real lists; they name virtual views.
var reservedListNames = map[string]bool{
	"inbox":     true,
	"trash":     true,
	"archive":   true,
	"all":       true,
	"today":     true,
	"next7days": true,
	"completed": true,
}

// DefaultListName is the list new tasks land in when none is specified.
const DefaultListName = "Inbox"

// IsReservedListName reports whether name collides with a virtual view.
// Matching is case-insensitive. The seeded Inbox list is exempt because it
// predates the reservation.
func IsReservedListName(name string) bool {
	return reservedListNames[strings.ToLower(strings.TrimSpace(name))]
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.Priority != nil {
		v := *t.Priority
		c.Priority = &v
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.Subtasks != nil {
		c.Subtasks = make([]*Subtask, len(t.Subtasks))
		for i, st := range t.Subtasks {
			sc := *st
			if st.CompletedAt != nil {
				v := *st.CompletedAt
				sc.CompletedAt = &v
			}
			if st.DueDate != nil {
				v := *st.DueDate
				sc.DueDate = &v
			}
			c.Subtasks[i] = &sc
		}
	}
	return &c
}

// Clone returns a copy of the list.
func (l *TaskList) Clone() *TaskList {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Clone returns a deep copy of the summary.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	c := *s
	if s.TaskIDs != nil {
		c.TaskIDs = append([]string(nil), s.TaskIDs...)
	}
	return &c
}
