package domain

import "time"

// DefaultNotificationSubject is used when an admin broadcast omits a subject.
const DefaultNotificationSubject = "Notification from TaskBoard"

// NotificationJob is the queued unit of work for an admin email broadcast.
type NotificationJob struct {
	JobID        string    `json:"job_id"`
	Recipients   []string  `json:"recipients"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	AttemptCount int       `json:"attempt_count"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// DispatchResult summarises one execution of a notification job.
type DispatchResult struct {
	JobID        string   `json:"job_id"`
	SentCount    int      `json:"sent_count"`
	FailedCount  int      `json:"failed_count"`
	FailedEmails []string `json:"failed_emails"`
	Total        int      `json:"total"`
}

// Email is a single outbound message handed to the mail transport.
type Email struct {
	To      string
	Subject string
	Body    string
}
