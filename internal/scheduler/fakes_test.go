package scheduler

import (
	"context"
	"sync"
	"time"

	"mentor-meet-api/internal/call"
	"mentor-meet-api/internal/model"
)

type fakeDirectory struct {
	roles map[string]model.Role
	err   error
	calls int
}

func (d *fakeDirectory) Roles(ctx context.Context) (map[string]model.Role, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.roles, nil
}

// fakeCalls wraps call.Memory with call counting and an optional hook.
type fakeCalls struct {
	mem   *call.Memory
	mu    sync.Mutex
	calls int
	// ProvisionFunc, when set, runs instead of the memory provisioner.
	ProvisionFunc func(ctx context.Context, id string) error
}

func newFakeCalls() *fakeCalls { return &fakeCalls{mem: call.NewMemory()} }

func (f *fakeCalls) Provision(ctx context.Context, id string, startsAt time.Time, meta call.Metadata) (*call.Handle, error) {
	f.mu.Lock()
	f.calls++
	fn := f.ProvisionFunc
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, id); err != nil {
			return nil, err
		}
	}
	return f.mem.Provision(ctx, id, startsAt, meta)
}

func (f *fakeCalls) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu       sync.Mutex
	sessions []model.Session
	orphans  map[string]string
	resolved []string
	creates  int
	// CreateErr fails the next creates while non-nil.
	CreateErr error
}

func newFakeStore() *fakeStore { return &fakeStore{orphans: map[string]string{}} }

func (s *fakeStore) CreateSession(ctx context.Context, n model.NewSession) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	for _, sess := range s.sessions {
		if sess.CallID == n.CallID {
			return nil, model.ErrDuplicateCall
		}
	}
	sess := model.Session{
		ID:             "s-" + n.CallID,
		Title:          n.Title,
		Description:    n.Description,
		StartTime:      n.StartTime,
		Status:         model.StatusUpcoming,
		CallID:         n.CallID,
		CandidateID:    n.CandidateID,
		InterviewerIDs: append([]string(nil), n.InterviewerIDs...),
	}
	s.sessions = append(s.sessions, sess)
	return &sess, nil
}

func (s *fakeStore) SessionByCallID(ctx context.Context, callID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.CallID == callID {
			return &sess, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) RecordOrphan(ctx context.Context, callID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphans[callID] = reason
	return nil
}

func (s *fakeStore) ResolveOrphan(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orphans[callID]; ok {
		delete(s.orphans, callID)
		s.resolved = append(s.resolved, callID)
	}
	return nil
}

func (s *fakeStore) snapshot() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Session(nil), s.sessions...)
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes []string
	orphaned int
}

func (m *fakeMetrics) RecordAttempt(outcome string) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, outcome)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordProvisionLatency(time.Duration) {}
func (m *fakeMetrics) RecordPersistLatency(time.Duration)   {}

func (m *fakeMetrics) RecordOrphanedCall() {
	m.mu.Lock()
	m.orphaned++
	m.mu.Unlock()
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []model.Session
}

func (n *fakeNotifier) Publish(sess model.Session) {
	n.mu.Lock()
	n.published = append(n.published, sess)
	n.mu.Unlock()
}

// recorder collects observed transitions.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(_ string, _, to State) {
	r.mu.Lock()
	r.states = append(r.states, to)
	r.mu.Unlock()
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.states = nil
	r.mu.Unlock()
}

func (r *recorder) got() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
