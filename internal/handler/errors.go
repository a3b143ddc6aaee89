package handler

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mentor-meet-api/internal/directory"
	"mentor-meet-api/internal/model"
	"mentor-meet-api/internal/scheduler"
)

// toStatus maps scheduling errors to a caller facing status.
func (h *Handler) toStatus(ctx context.Context, err error) error {
	var (
		verr *scheduler.ValidationError
		perr *scheduler.ProvisionError
		serr *scheduler.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		return invalid(verr)
	case errors.Is(err, scheduler.ErrAttemptInFlight):
		return status.Error(codes.Aborted, "a booking is already being scheduled")
	case errors.Is(err, model.ErrDuplicateCall):
		return status.Error(codes.AlreadyExists, "call already belongs to another booking")
	case errors.As(err, &perr):
		return status.Error(codes.Unavailable, "could not create the video call, try again")
	case errors.As(err, &serr):
		return status.Error(codes.Internal,
			fmt.Sprintf("session not saved; retry with streamCallId %s", serr.CallID))
	case errors.Is(err, directory.ErrUnavailable):
		return status.Error(codes.Unavailable, "user directory unavailable")
	}
	h.log.ErrorContext(ctx, "unexpected error", "error", err)
	return status.Error(codes.Internal, "internal error")
}

// invalid carries each violation as a BadRequest field violation.
func invalid(verr *scheduler.ValidationError) error {
	br := &errdetails.BadRequest{}
	for _, v := range verr.Violations {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       v.Field,
			Description: v.Description,
		})
	}
	st := status.New(codes.InvalidArgument, verr.Error())
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}
