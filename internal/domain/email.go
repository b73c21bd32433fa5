package domain

import (
	"fmt"
	"time"
)

// EmailStatus tracks delivery of an outbound message.
type EmailStatus string

const (
	EmailStatusReady   EmailStatus = "READY"
	EmailStatusSending EmailStatus = "SENDING"
	EmailStatusSent    EmailStatus = "SENT"
	EmailStatusFailed  EmailStatus = "FAILED"
)

// Email is an outbound message record. SentAt is set iff Status is SENT.
type Email struct {
	ID        string
	Status    EmailStatus
	From      string
	To        string
	Subject   string
	Message   string
	HTML      string
	SentAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmailTransitionError reports an illegal status change.
type EmailTransitionError struct {
	Action string
	Status EmailStatus
}

func (e *EmailTransitionError) Error() string {
	return fmt.Sprintf("cannot %s email in status %s", e.Action, e.Status)
}

// MarkSending moves a ready email into the sending state.
func (e *Email) MarkSending() error {
	if e.Status != EmailStatusReady {
		return &EmailTransitionError{Action: "start sending", Status: e.Status}
	}
	e.Status = EmailStatusSending
	return nil
}

// MarkSent records a successful delivery.
func (e *Email) MarkSent(at time.Time) error {
	if e.Status != EmailStatusSending {
		return &EmailTransitionError{Action: "send non-sending", Status: e.Status}
	}
	e.Status = EmailStatusSent
	e.SentAt = &at
	return nil
}

// MarkFailed records a failed delivery.
func (e *Email) MarkFailed() error {
	if e.Status != EmailStatusSending {
		return &EmailTransitionError{Action: "fail non-sending", Status: e.Status}
	}
	e.Status = EmailStatusFailed
	e.SentAt = nil
	return nil
}
