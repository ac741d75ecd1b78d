package dispatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

// JobType tags one kind of email-delivery work.
type JobType string

const (
	JobMessageNotification     JobType = "message_notification"
	JobMessageNotificationBulk JobType = "message_notification_bulk"
	JobBroadcastAnnouncement   JobType = "broadcast_announcement"
	JobExchangeConfirmation    JobType = "exchange_confirmation"
	JobExchangeStatusUpdate    JobType = "exchange_status_update"
	JobActivityApproved        JobType = "activity_approved_notification"
	JobActivityRejected        JobType = "activity_rejected_notification"
)

// Payload is one job's typed payload. The interface is sealed: exactly one
// struct exists per JobType, and the worker dispatches on the concrete type
// instead of digging through an untyped map.
type Payload interface {
	JobType() JobType
}

// EmailRecipient addresses one outbound email.
type EmailRecipient struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id,omitempty"`
}

// MessageNotification is the email copy of a single in-app message.
type MessageNotification struct {
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Subject  string            `json:"subject"`
	Content  string            `json:"content"`
	Category prefs.Category    `json:"category"`
	Priority messages.Priority `json:"priority"`
	Type     string            `json:"type"`
}

func (MessageNotification) JobType() JobType { return JobMessageNotification }

// MessageNotificationBulk carries one fan-out email batch. However many
// recipients an admin alert reaches, the request enqueues exactly one job.
type MessageNotificationBulk struct {
	Recipients []EmailRecipient  `json:"recipients"`
	Subject    string            `json:"subject"`
	Content    string            `json:"content"`
	Category   prefs.Category    `json:"category"`
	Priority   messages.Priority `json:"priority"`
	Type       string            `json:"type"`
}

func (MessageNotificationBulk) JobType() JobType { return JobMessageNotificationBulk }

// BroadcastAnnouncement is a platform-wide announcement email batch.
type BroadcastAnnouncement struct {
	Recipients []EmailRecipient  `json:"recipients"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Priority   messages.Priority `json:"priority"`
	Subject    string            `json:"subject"`
	Context    string            `json:"context,omitempty"`
}

func (BroadcastAnnouncement) JobType() JobType { return JobBroadcastAnnouncement }

// ExchangeConfirmation confirms a reward exchange order.
type ExchangeConfirmation struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	PointsSpent int    `json:"points_spent"`
}

func (ExchangeConfirmation) JobType() JobType { return JobExchangeConfirmation }

// ExchangeStatusUpdate reports a change to an exchange order (shipped,
// cancelled, refunded).
type ExchangeStatusUpdate struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	ProductName string `json:"product_name"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

func (ExchangeStatusUpdate) JobType() JobType { return JobExchangeStatusUpdate }

// ActivityApproved notifies that a submitted green activity earned points.
type ActivityApproved struct {
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ActivityName string `json:"activity_name"`
	Points       int    `json:"points"`
}

func (ActivityApproved) JobType() JobType { return JobActivityApproved }

// ActivityRejected notifies that a submitted green activity was declined.
type ActivityRejected struct {
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ActivityName string `json:"activity_name"`
	Reason       string `json:"reason"`
}

func (ActivityRejected) JobType() JobType { return JobActivityRejected }

// Job is one unit of email-delivery work. Jobs are ephemeral: they live in
// the request's pending batch or in a temp file handed to a worker process,
// never in the primary store.
type Job struct {
	Type      JobType
	Payload   Payload
	CreatedAt time.Time
}

// NewJob wraps a payload into a Job, deriving the type tag from the payload.
func NewJob(p Payload) Job {
	return Job{
		Type:      p.JobType(),
		Payload:   p,
		CreatedAt: time.Now(),
	}
}

// jobEnvelope is the wire form of a Job inside a job file.
type jobEnvelope struct {
	Type    JobType         `json:"job_type"`
	Payload json.RawMessage `json:"payload"`
}

func (j Job) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(j.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", j.Type, err)
	}
	return json.Marshal(jobEnvelope{Type: j.Type, Payload: raw})
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var env jobEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}

	j.Type = env.Type
	j.Payload = payload
	return nil
}

// decodePayload picks the concrete payload struct for a job type tag.
func decodePayload(t JobType, raw json.RawMessage) (Payload, error) {
	var (
		payload Payload
		err     error
	)
	switch t {
	case JobMessageNotification:
		var p MessageNotification
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobMessageNotificationBulk:
		var p MessageNotificationBulk
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobBroadcastAnnouncement:
		var p BroadcastAnnouncement
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobExchangeConfirmation:
		var p ExchangeConfirmation
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobExchangeStatusUpdate:
		var p ExchangeStatusUpdate
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobActivityApproved:
		var p ActivityApproved
		err = json.Unmarshal(raw, &p)
		payload = p
	case JobActivityRejected:
		var p ActivityRejected
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return payload, nil
}
