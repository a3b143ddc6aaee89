package model

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a directory user can hold.
type Role int

const (
	RoleMentee Role = iota + 1
	RoleMentor
)

// external names used by the directory and persistence APIs
const (
	roleCandidate   = "candidate"
	roleInterviewer = "interviewer"
)

func ParseRole(s string) (Role, error) {
	switch s {
	case roleCandidate:
		return RoleMentee, nil
	case roleInterviewer:
		return RoleMentor, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// External returns the wire name of the role.
func (r Role) External() string {
	switch r {
	case RoleMentee:
		return roleCandidate
	case RoleMentor:
		return roleInterviewer
	}
	panic(fmt.Sprintf("model: invalid role %d", int(r)))
}

func (r Role) String() string {
	switch r {
	case RoleMentee:
		return "mentee"
	case RoleMentor:
		return "mentor"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID        string
	Name      string
	Email     string
	ImageURL  string
	Role      Role
	CreatedAt time.Time
}

type Session struct {
	ID             string
	Title          string
	Description    string
	StartTime      time.Time
	Status         Status
	CallID         string
	CandidateID    string
	InterviewerIDs []string
	CreatedAt      time.Time
}

// NewSession holds the fields a store needs to create a session.
// Status is always StatusUpcoming at creation.
type NewSession struct {
	Title          string
	Description    string
	StartTime      time.Time
	CallID         string
	CandidateID    string
	InterviewerIDs []string
}

// OrphanedCall is a provisioned call with no session record.
type OrphanedCall struct {
	CallID     string
	Reason     string
	RecordedAt time.Time
	ResolvedAt *time.Time
}
