package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Outbox event types emitted by the appointment service.
const (
	EventRequestCreated   = "appointment_request.created"
	EventRequestUpdated   = "appointment_request.updated"
	EventRequestCancelled = "appointment_request.cancelled"
	EventStatusChanged    = "appointment_request.status_changed"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// RequestEventPayload is the body published for appointment request events.
type RequestEventPayload struct {
	RequestID         uuid.UUID     `json:"request_id"`
	PsychiatristID    uuid.UUID     `json:"psychiatrist_id"`
	PsychiatristEmail string        `json:"psychiatrist_email,omitempty"`
	PatientName       string        `json:"patient_name"`
	PatientEmail      string        `json:"patient_email"`
	Status            RequestStatus `json:"status"`
	PreviousStatus    RequestStatus `json:"previous_status,omitempty"`
}
