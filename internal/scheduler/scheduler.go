// Package scheduler books mentoring sessions: it validates a booking,
// provisions the video call and persists the session that references it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mentor-meet-api/internal/call"
	"mentor-meet-api/internal/metrics"
	"mentor-meet-api/internal/model"
)

const tracerName = "mentor-meet-api/internal/scheduler"

// Directory resolves user roles for validation.
type Directory interface {
	Roles(ctx context.Context) (map[string]model.Role, error)
}

// Store persists sessions and keeps the orphaned call log.
type Store interface {
	CreateSession(ctx context.Context, n model.NewSession) (*model.Session, error)
	SessionByCallID(ctx context.Context, callID string) (*model.Session, error)
	RecordOrphan(ctx context.Context, callID, reason string) error
	ResolveOrphan(ctx context.Context, callID string) error
}

// Notifier is told about every newly created session.
type Notifier interface {
	Publish(sess model.Session)
}

// Request is one booking submission. CallID is empty on a first attempt
// and carries the call id from a failed attempt on retry.
type Request struct {
	Title       string
	Description string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, one of the configured slots
	MenteeID    string
	MentorIDs   []string
	CallID      string
}

func (r Request) clone() Request {
	r.MentorIDs = slices.Clone(r.MentorIDs)
	return r
}

type Scheduler struct {
	dir   Directory
	calls call.Provisioner
	store Store

	log      *slog.Logger
	metrics  metrics.Recorder
	notifier Notifier
	observer Observer
	tracer   trace.Tracer

	slots            Slots
	loc              *time.Location
	now              func() time.Time
	newCallID        func() string
	provisionTimeout time.Duration
	persistTimeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option { return func(s *Scheduler) { s.log = l } }

func WithMetrics(r metrics.Recorder) Option { return func(s *Scheduler) { s.metrics = r } }

func WithNotifier(n Notifier) Option { return func(s *Scheduler) { s.notifier = n } }

// WithObserver registers a callback for every attempt state transition.
func WithObserver(o Observer) Option { return func(s *Scheduler) { s.observer = o } }

func WithSlots(sl Slots) Option { return func(s *Scheduler) { s.slots = sl } }

// WithLocation sets the zone booking dates and slots are read in.
func WithLocation(loc *time.Location) Option { return func(s *Scheduler) { s.loc = loc } }

func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// WithCallIDs replaces the random call id generator.
func WithCallIDs(gen func() string) Option { return func(s *Scheduler) { s.newCallID = gen } }

// WithTimeouts bounds the provisioning and persistence calls.
func WithTimeouts(provision, persist time.Duration) Option {
	return func(s *Scheduler) {
		s.provisionTimeout = provision
		s.persistTimeout = persist
	}
}

func New(dir Directory, calls call.Provisioner, store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		dir:              dir,
		calls:            calls,
		store:            store,
		log:              slog.Default(),
		metrics:          metrics.Nop{},
		tracer:           otel.Tracer(tracerName),
		slots:            DefaultSlots(),
		loc:              time.Local,
		now:              time.Now,
		newCallID:        func() string { return uuid.New().String() },
		provisionTimeout: 10 * time.Second,
		persistTimeout:   10 * time.Second,
		inFlight:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Slots() Slots { return s.slots }

func (s *Scheduler) Location() *time.Location { return s.loc }

// Today is the current calendar day in the scheduling location.
func (s *Scheduler) Today() string { return s.now().In(s.loc).Format(DateLayout) }

// ScheduleSession runs one booking attempt for initiatorID. A second call
// for the same initiator while one is running fails with ErrAttemptInFlight.
func (s *Scheduler) ScheduleSession(ctx context.Context, initiatorID string, req Request) (*model.Session, error) {
	if !s.acquire(initiatorID) {
		s.metrics.RecordAttempt(metrics.OutcomeInFlight)
		return nil, ErrAttemptInFlight
	}
	defer s.release(initiatorID)

	ctx, span := s.tracer.Start(ctx, "scheduler.ScheduleSession",
		trace.WithAttributes(attribute.String("initiator.id", initiatorID)))
	defer span.End()

	a := &attempt{initiator: initiatorID, observer: s.observer}
	sess, err := s.run(ctx, a, initiatorID, req.clone())
	if err != nil {
		a.to(StateFailed)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "schedule failed")
		return nil, err
	}
	a.to(StateSucceeded)
	span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("call.id", sess.CallID))
	return sess, nil
}

func (s *Scheduler) run(ctx context.Context, a *attempt, initiatorID string, req Request) (*model.Session, error) {
	a.to(StateValidating)
	req.MentorIDs = dedupe(req.MentorIDs)
	start, err := s.validate(ctx, initiatorID, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.metrics.RecordAttempt(metrics.OutcomeInvalid)
		} else {
			s.metrics.RecordAttempt(metrics.OutcomeDirectory)
		}
		return nil, err
	}

	retry := req.CallID != ""
	callID := req.CallID
	if !retry {
		callID = s.newCallID()
	}

	a.to(StateProvisioning)
	if err := s.provision(ctx, callID, start, req); err != nil {
		s.metrics.RecordAttempt(metrics.OutcomeProvision)
		s.log.Warn("call provisioning failed", "call_id", callID, "initiator", initiatorID, "error", err)
		return nil, &ProvisionError{CallID: callID, Err: err}
	}

	a.to(StatePersisting)
	sess, created, err := s.persist(ctx, callID, start, req, retry)
	if err != nil {
		s.metrics.RecordAttempt(metrics.OutcomePersistence)
		if !errors.Is(err, model.ErrDuplicateCall) {
			s.recordOrphan(ctx, callID, err)
		}
		return nil, &PersistenceError{CallID: callID, Err: err}
	}

	if retry {
		s.resolveOrphan(ctx, callID)
	}
	s.metrics.RecordAttempt(metrics.OutcomeSucceeded)
	if created {
		s.log.Info("session scheduled",
			"session_id", sess.ID, "call_id", sess.CallID,
			"candidate_id", sess.CandidateID, "interviewers", len(sess.InterviewerIDs),
			"start_time", sess.StartTime)
		if s.notifier != nil {
			s.notifier.Publish(*sess)
		}
	} else {
		s.log.Info("retry matched existing session", "session_id", sess.ID, "call_id", sess.CallID)
	}
	return sess, nil
}

func (s *Scheduler) validate(ctx context.Context, initiatorID string, req Request) (time.Time, error) {
	verr := &ValidationError{}

	if req.MenteeID == "" {
		verr.add("mentee_id", "select a mentee")
	}
	if len(req.MentorIDs) == 0 {
		verr.add("mentor_ids", "select at least one mentor")
	} else if !slices.Contains(req.MentorIDs, initiatorID) {
		verr.add("mentor_ids", "must include the scheduling mentor")
	}

	if req.Date == "" {
		verr.add("date", "select a date")
	} else if _, err := time.Parse(DateLayout, req.Date); err != nil {
		verr.add("date", "%q is not a YYYY-MM-DD date", req.Date)
	}
	if !s.slots.Contains(req.Time) {
		verr.add("time", "%q is not a bookable time", req.Time)
	}
	if req.CallID != "" {
		if _, err := uuid.Parse(req.CallID); err != nil {
			verr.add("call_id", "%q is not a valid call id", req.CallID)
		}
	}

	if req.MenteeID != "" || len(req.MentorIDs) > 0 {
		roles, err := s.dir.Roles(ctx)
		if err != nil {
			if len(verr.Violations) > 0 {
				return time.Time{}, verr
			}
			return time.Time{}, err
		}
		if req.MenteeID != "" && roles[req.MenteeID] != model.RoleMentee {
			verr.add("mentee_id", "%q is not a mentee", req.MenteeID)
		}
		for i, id := range req.MentorIDs {
			if roles[id] != model.RoleMentor {
				verr.add(fmt.Sprintf("mentor_ids[%d]", i), "%q is not a mentor", id)
			}
		}
	}

	if len(verr.Violations) > 0 {
		return time.Time{}, verr
	}
	return startTime(req.Date, req.Time, s.loc)
}

// bounded detaches from the caller's cancellation so an aborted request
// does not cut a provider or storage call short.
func (s *Scheduler) bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func (s *Scheduler) provision(ctx context.Context, callID string, start time.Time, req Request) error {
	ctx, cancel := s.bounded(ctx, s.provisionTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "call.Provision", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	began := time.Now()
	meta := call.Metadata{
		Description:       req.Title,
		AdditionalDetails: req.Description,
	}
	h, err := s.calls.Provision(ctx, callID, start, meta)
	s.metrics.RecordProvisionLatency(time.Since(began))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "provision failed")
		return err
	}
	if h.ID != callID {
		return fmt.Errorf("provider returned call %q for %q", h.ID, callID)
	}
	// an existing call must be the one this booking would have created
	if !h.Created && (!h.StartsAt.Equal(start) || h.Metadata != meta) {
		return fmt.Errorf("%w: call starts %s for %q", model.ErrDuplicateCall,
			h.StartsAt.Format(time.RFC3339), h.Metadata.Description)
	}
	span.SetAttributes(attribute.Bool("call.created", h.Created))
	return nil
}

// sameBooking reports whether sess is the session req would have created,
// so a retry may return it as its own.
func sameBooking(sess *model.Session, start time.Time, req Request) bool {
	if !sess.StartTime.Equal(start) ||
		sess.Title != req.Title ||
		sess.Description != req.Description ||
		sess.CandidateID != req.MenteeID ||
		len(sess.InterviewerIDs) != len(req.MentorIDs) {
		return false
	}
	for _, id := range req.MentorIDs {
		if !slices.Contains(sess.InterviewerIDs, id) {
			return false
		}
	}
	return true
}

// persist saves the session. On retry an existing session bound to the
// call is returned instead, with created false.
func (s *Scheduler) persist(ctx context.Context, callID string, start time.Time, req Request, retry bool) (*model.Session, bool, error) {
	ctx, cancel := s.bounded(ctx, s.persistTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "store.CreateSession", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	began := time.Now()
	defer func() { s.metrics.RecordPersistLatency(time.Since(began)) }()

	if retry {
		existing, err := s.store.SessionByCallID(ctx, callID)
		switch {
		case err == nil:
			if !sameBooking(existing, start, req) {
				return nil, false, fmt.Errorf("%w: bound to another booking", model.ErrDuplicateCall)
			}
			return existing, false, nil
		case !errors.Is(err, model.ErrNotFound):
			span.RecordError(err)
			return nil, false, err
		}
	}

	sess, err := s.store.CreateSession(ctx, model.NewSession{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      start,
		CallID:         callID,
		CandidateID:    req.MenteeID,
		InterviewerIDs: req.MentorIDs,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "persist failed")
		return nil, false, err
	}
	return sess, true, nil
}

func (s *Scheduler) recordOrphan(ctx context.Context, callID string, cause error) {
	s.metrics.RecordOrphanedCall()
	s.log.Error("call provisioned without a session", "call_id", callID, "error", cause)

	ctx, cancel := s.bounded(ctx, s.persistTimeout)
	defer cancel()
	if err := s.store.RecordOrphan(ctx, callID, cause.Error()); err != nil {
		s.log.Error("record orphaned call", "call_id", callID, "error", err)
	}
}

func (s *Scheduler) resolveOrphan(ctx context.Context, callID string) {
	ctx, cancel := s.bounded(ctx, s.persistTimeout)
	defer cancel()
	if err := s.store.ResolveOrphan(ctx, callID); err != nil {
		s.log.Warn("resolve orphaned call", "call_id", callID, "error", err)
	}
}

func (s *Scheduler) acquire(initiatorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[initiatorID]; busy {
		return false
	}
	s.inFlight[initiatorID] = struct{}{}
	return true
}

func (s *Scheduler) release(initiatorID string) {
	s.mu.Lock()
	delete(s.inFlight, initiatorID)
	s.mu.Unlock()
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
