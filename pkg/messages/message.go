package messages

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents the in-app message priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid checks if the priority is one of the known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SubjectPrefix returns the email subject prefix for the priority.
// Only high and urgent messages are prefixed.
func (p Priority) SubjectPrefix() string {
	switch p {
	case PriorityUrgent:
		return "[URGENT] "
	case PriorityHigh:
		return "[HIGH] "
	}
	return ""
}

// ParsePriority maps a raw string to a Priority, defaulting to normal for
// unknown values so a bad classification never blocks delivery.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if !p.Valid() {
		return PriorityNormal
	}
	return p
}

// Message is the in-app notification copy persisted for one receiver.
// A message is receiver-scoped: deleting it only hides this receiver's copy.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	ReceiverID int64      `json:"receiver_id"`
	SenderID   *int64     `json:"sender_id,omitempty"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Priority   Priority   `json:"priority"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"-"`
}

// MarkAsRead marks the message as read with the current timestamp.
func (m *Message) MarkAsRead() {
	m.Read = true
	now := time.Now()
	m.ReadAt = &now
}

// Row is the input for creating one message.
type Row struct {
	ReceiverID int64
	SenderID   *int64
	Title      string
	Content    string
	Priority   Priority
}
