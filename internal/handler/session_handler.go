package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/scheduler"
)

func (h *Handler) ListSessions(ctx context.Context, req *api.ListSessionsRequest) (*api.ListSessionsResponse, error) {
	if _, err := uid(ctx); err != nil {
		return nil, err
	}
	list, err := h.sessions.ListSessions(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "list sessions", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &api.ListSessionsResponse{Sessions: api.FromSessions(list)}, nil
}

// ScheduleSession books a session for the calling mentor.
func (h *Handler) ScheduleSession(ctx context.Context, req *api.ScheduleSessionRequest) (*api.ScheduleSessionResponse, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := h.sched.ScheduleSession(ctx, userID, scheduler.Request{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		MenteeID:    req.CandidateID,
		MentorIDs:   req.InterviewerIDs,
		CallID:      req.StreamCallID,
	})
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &api.ScheduleSessionResponse{Session: api.FromSession(*sess)}, nil
}

func (h *Handler) ListTimeSlots(ctx context.Context, req *api.ListTimeSlotsRequest) (*api.ListTimeSlotsResponse, error) {
	slots := h.sched.Slots()
	return &api.ListTimeSlotsResponse{
		Times:    slots.Times(),
		Default:  slots.Default(),
		Today:    h.sched.Today(),
		Timezone: h.sched.Location().String(),
	}, nil
}
