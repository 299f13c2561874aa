package model

import (
	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/listfield"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusDeclined  RequestStatus = "declined"
	RequestStatusCompleted RequestStatus = "completed"
)

// OtherMarker is the sentinel element in hoping_to_work_on that signals a
// free-text elaboration lives in other_work_on. The two are kept in sync on
// every write.
const OtherMarker = "Other:"

// ValidRequestStatus reports whether s is one of the four request states.
func ValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusDeclined, RequestStatusCompleted:
		return true
	}
	return false
}

// CanPatientModify reports whether the owning patient may still edit or
// cancel a request in the given state. Only pending requests are open to
// patient self-service; every other state is terminal from the patient's
// perspective.
func CanPatientModify(s RequestStatus) bool {
	return s == RequestStatusPending
}

// CanTransition reports whether the owning psychiatrist may move a request
// from one state to another. The table is deliberately permissive: status
// authority belongs entirely to the psychiatrist, who may revert to pending
// or jump straight to completed. Formalizing it here keeps the behavior
// auditable even though no transition between valid states is refused.
func CanTransition(from, to RequestStatus) bool {
	return ValidRequestStatus(from) && ValidRequestStatus(to)
}

// AppointmentRequest is one patient's request for an appointment with a
// psychiatrist. The two list-valued columns have been serialized
// inconsistently over time, so they scan through listfield.List.
type AppointmentRequest struct {
	Base
	PsychiatristID           uuid.UUID      `db:"psychiatrist_id" json:"psychiatrist_id"`
	PatientName              string         `db:"patient_name" json:"patient_name"`
	PatientEmail             string         `db:"patient_email" json:"patient_email"`
	PreferredAppointmentType string         `db:"preferred_appointment_type" json:"preferred_appointment_type"`
	PreferredTimes           listfield.List `db:"preferred_times" json:"preferred_times"`
	WhatBringsYou            string         `db:"what_brings_you" json:"what_brings_you,omitempty"`
	HopingToWorkOn           listfield.List `db:"hoping_to_work_on" json:"hoping_to_work_on"`
	OtherWorkOn              string         `db:"other_work_on" json:"other_work_on,omitempty"`
	SpokenBefore             string         `db:"spoken_before" json:"spoken_before,omitempty"`
	AnythingElse             string         `db:"anything_else" json:"anything_else,omitempty"`
	Status                   RequestStatus  `db:"status" json:"status"`
}

type CreateAppointmentRequest struct {
	PsychiatristID           uuid.UUID `json:"psychiatrist_id" binding:"required"`
	PatientName              string    `json:"patient_name" binding:"required"`
	PatientEmail             string    `json:"patient_email" binding:"required,email"`
	PreferredAppointmentType string    `json:"preferred_appointment_type" binding:"required,oneof=in-person virtual either"`
	PreferredTimes           []string  `json:"preferred_times"`
	WhatBringsYou            string    `json:"what_brings_you"`
	HopingToWorkOn           []string  `json:"hoping_to_work_on"`
	OtherWorkOn              string    `json:"other_work_on"`
	SpokenBefore             string    `json:"spoken_before" binding:"required,oneof=yes no prefer-not-to-say"`
	AnythingElse             string    `json:"anything_else"`
}

// UpdateAppointmentRequest is a full-field replacement of the editable
// fields, mirroring the edit form.
type UpdateAppointmentRequest struct {
	PatientName              string   `json:"patient_name" binding:"required"`
	PatientEmail             string   `json:"patient_email" binding:"required,email"`
	PreferredAppointmentType string   `json:"preferred_appointment_type" binding:"required,oneof=in-person virtual either"`
	PreferredTimes           []string `json:"preferred_times"`
	WhatBringsYou            string   `json:"what_brings_you"`
	HopingToWorkOn           []string `json:"hoping_to_work_on"`
	OtherWorkOn              string   `json:"other_work_on"`
	SpokenBefore             string   `json:"spoken_before" binding:"required,oneof=yes no prefer-not-to-say"`
	AnythingElse             string   `json:"anything_else"`
}

type UpdateStatusRequest struct {
	Status RequestStatus `json:"status" binding:"required,request_status"`
}

type AppointmentFilters struct {
	PsychiatristID uuid.UUID
	PatientEmail   string
	Status         RequestStatus
}
