package domain

// UserTaskStats is one row of the admin overview.
type UserTaskStats struct {
	ID         string
	Email      string
	Username   string
	IsActive   bool
	TotalTasks int
	OpenTasks  int
}

// Overview aggregates per-user task counts and system-wide user counts.
type Overview struct {
	Users       []UserTaskStats
	TotalUsers  int
	ActiveUsers int
}
