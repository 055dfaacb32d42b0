package domain

import "time"

type SubmissionKind string

const (
	KindQuestion            SubmissionKind = "question"
	KindFeedback            SubmissionKind = "feedback"
	KindConsultationRequest SubmissionKind = "consultation_request"
)

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusAnswered SubmissionStatus = "answered"
	StatusRejected SubmissionStatus = "rejected"
)

// Submission is one completed capture flow. The core creates it exactly once
// and never mutates it afterwards; answering and moderation happen elsewhere.
type Submission struct {
	ID                 string
	TenantID           string
	UserID             int64
	Kind               SubmissionKind
	Topic              string
	Text               string
	AuthorName         string
	AuthorRole         string
	AuthorConstituency string
	Phone              string
	Status             SubmissionStatus
	Answer             string
	Public             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FlowKind identifies a capture flow for funnel accounting.
type FlowKind string

const (
	FlowQuestion     FlowKind = "question"
	FlowFeedback     FlowKind = "feedback"
	FlowConsultation FlowKind = "consultation"
)
