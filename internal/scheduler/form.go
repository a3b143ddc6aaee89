package scheduler

import (
	"context"
	"errors"
	"slices"
	"time"

	"mentor-meet-api/internal/model"
)

// DefaultRequest is the empty booking for initiatorID: dated today,
// at the default slot, with the initiator as the only mentor.
func DefaultRequest(initiatorID string, today time.Time, slots Slots) Request {
	return Request{
		Date:      today.Format(DateLayout),
		Time:      slots.Default(),
		MentorIDs: []string{initiatorID},
	}
}

// Form is the in-progress booking of one initiator. It is not safe for
// concurrent use.
type Form struct {
	sched     *Scheduler
	initiator string
	req       Request
}

func (s *Scheduler) NewForm(initiatorID string) *Form {
	f := &Form{sched: s, initiator: initiatorID}
	f.Reset()
	return f
}

func (f *Form) Reset() {
	f.req = DefaultRequest(f.initiator, f.sched.now().In(f.sched.loc), f.sched.slots)
}

// Request returns a copy of the current booking.
func (f *Form) Request() Request { return f.req.clone() }

// SetTitle and the other booking field setters drop a pending retry call id,
// which only applies to an unchanged booking.
func (f *Form) SetTitle(v string) {
	if v != f.req.Title {
		f.req.Title, f.req.CallID = v, ""
	}
}

func (f *Form) SetDescription(v string) {
	if v != f.req.Description {
		f.req.Description, f.req.CallID = v, ""
	}
}

func (f *Form) SetDate(v string) {
	if v != f.req.Date {
		f.req.Date, f.req.CallID = v, ""
	}
}

func (f *Form) SetTime(v string) {
	if v != f.req.Time {
		f.req.Time, f.req.CallID = v, ""
	}
}

func (f *Form) SetMentee(id string) {
	if id != f.req.MenteeID {
		f.req.MenteeID, f.req.CallID = id, ""
	}
}

// AddMentor adds id unless it is already selected.
func (f *Form) AddMentor(id string) {
	if id == "" || slices.Contains(f.req.MentorIDs, id) {
		return
	}
	f.req.MentorIDs = append(f.req.MentorIDs, id)
}

// RemoveMentor drops id. The initiator cannot be removed.
func (f *Form) RemoveMentor(id string) {
	if id == f.initiator {
		return
	}
	f.req.MentorIDs = slices.DeleteFunc(f.req.MentorIDs, func(m string) bool { return m == id })
}

func (f *Form) Mentors() []string { return slices.Clone(f.req.MentorIDs) }

// Submit schedules the current booking. The form resets on success. After a
// provisioning or persistence failure it keeps the call id, so submitting
// again reuses the same call. A call id bound to another booking is dropped.
func (f *Form) Submit(ctx context.Context) (*model.Session, error) {
	sess, err := f.sched.ScheduleSession(ctx, f.initiator, f.Request())
	if err != nil {
		var (
			perr *ProvisionError
			serr *PersistenceError
		)
		switch {
		case errors.Is(err, model.ErrDuplicateCall):
			f.req.CallID = ""
		case errors.As(err, &perr):
			f.req.CallID = perr.CallID
		case errors.As(err, &serr):
			f.req.CallID = serr.CallID
		}
		return nil, err
	}
	f.Reset()
	return sess, nil
}
