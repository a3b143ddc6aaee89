// Package api defines the JSON messages of mentor.v1.SessionService and
// the live session feed.
package api

import (
	"mentor-meet-api/internal/model"
)

const (
	ServiceName = "mentor.v1.SessionService"

	MethodListMentees     = "/" + ServiceName + "/ListMentees"
	MethodListMentors     = "/" + ServiceName + "/ListMentors"
	MethodListSessions    = "/" + ServiceName + "/ListSessions"
	MethodScheduleSession = "/" + ServiceName + "/ScheduleSession"
	MethodListTimeSlots   = "/" + ServiceName + "/ListTimeSlots"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	ImageURL string `json:"image,omitempty"`
	Role     string `json:"role"`
}

func FromUser(u model.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, ImageURL: u.ImageURL, Role: u.Role.External()}
}

// Session carries times as epoch milliseconds.
type Session struct {
	ID             string   `json:"_id"`
	CreationTime   int64    `json:"_creationTime"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	StartTime      int64    `json:"startTime"`
	Status         string   `json:"status"`
	StreamCallID   string   `json:"streamCallId"`
	CandidateID    string   `json:"candidateId"`
	InterviewerIDs []string `json:"interviewerIds"`
}

func FromSession(s model.Session) Session {
	ids := s.InterviewerIDs
	if ids == nil {
		ids = []string{}
	}
	return Session{
		ID:             s.ID,
		CreationTime:   s.CreatedAt.UnixMilli(),
		Title:          s.Title,
		Description:    s.Description,
		StartTime:      s.StartTime.UnixMilli(),
		Status:         string(s.Status),
		StreamCallID:   s.CallID,
		CandidateID:    s.CandidateID,
		InterviewerIDs: ids,
	}
}

func FromSessions(list []model.Session) []Session {
	out := make([]Session, len(list))
	for i, s := range list {
		out[i] = FromSession(s)
	}
	return out
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// ScheduleSessionRequest books a session. StreamCallID is only set when
// retrying a failed attempt with the call id it reported.
type ScheduleSessionRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	CandidateID    string   `json:"candidateId"`
	InterviewerIDs []string `json:"interviewerIds"`
	StreamCallID   string   `json:"streamCallId,omitempty"`
}

type ScheduleSessionResponse struct {
	Session Session `json:"session"`
}

type ListTimeSlotsRequest struct{}

type ListTimeSlotsResponse struct {
	Times    []string `json:"times"`
	Default  string   `json:"default"`
	Today    string   `json:"today"`
	Timezone string   `json:"timezone"`
}

// Event types on the live feed.
const (
	EventSnapshot = "sessions.snapshot"
	EventCreated  = "session.created"
)

type Event struct {
	Type     string    `json:"type"`
	Session  *Session  `json:"session,omitempty"`
	Sessions []Session `json:"sessions,omitempty"`
}
