package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/cohort-nurture/internal/entity"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context) ([]entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindCandidates(ctx context.Context) ([]entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) RecordEmailSent(ctx context.Context, id string, from, next entity.LeadStatus, sentAt time.Time) (*entity.Lead, error) {
	args := m.Called(ctx, id, from, next, sentAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) MarkStopped(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockLeadRepository) ApplyInteraction(ctx context.Context, id string, update entity.InteractionUpdate, at time.Time) (*entity.Lead, error) {
	args := m.Called(ctx, id, update, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Stats(ctx context.Context) (*entity.LeadStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeadStats), args.Error(1)
}

// MockMailGateway
type MockMailGateway struct {
	mock.Mock
}

func (m *MockMailGateway) Send(ctx context.Context, req entity.EmailRequest) entity.SendResult {
	args := m.Called(ctx, req)
	return args.Get(0).(entity.SendResult)
}

// MockEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMetrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordEmail(kind entity.EmailKind, success bool) {
	m.Called(kind, success)
}

func (m *MockMetrics) RecordSweep(report *SweepReport) {
	m.Called(report)
}

// memLeadStore keeps leads in memory with the same write rules as the
// Postgres repository.
type memLeadStore struct {
	mu    sync.Mutex
	leads map[string]*entity.Lead
}

func newMemLeadStore(leads ...*entity.Lead) *memLeadStore {
	s := &memLeadStore{leads: map[string]*entity.Lead{}}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *memLeadStore) Insert(_ context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.Email == lead.Email {
			return entity.ErrEmailAlreadyExists
		}
	}
	cp := *lead
	s.leads[lead.ID] = &cp
	return nil
}

func (s *memLeadStore) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memLeadStore) FindAll(_ context.Context) ([]entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memLeadStore) FindCandidates(ctx context.Context) ([]entity.Lead, error) {
	all, _ := s.FindAll(ctx)
	out := all[:0]
	for _, l := range all {
		if l.IsCandidate() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memLeadStore) RecordEmailSent(_ context.Context, id string, from, next entity.LeadStatus, sentAt time.Time) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	l.RecordEmailSent(from, next, sentAt)
	cp := *l
	return &cp, nil
}

func (s *memLeadStore) MarkStopped(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok || l.Status != entity.StatusFinalReminder || l.PaymentComplete {
		return entity.ErrLeadNotFound
	}
	l.Status = entity.StatusStopped
	l.UpdatedAt = at
	return nil
}

func (s *memLeadStore) ApplyInteraction(_ context.Context, id string, update entity.InteractionUpdate, at time.Time) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	l.ApplyInteraction(update, at)
	cp := *l
	return &cp, nil
}

func (s *memLeadStore) Stats(_ context.Context) (*entity.LeadStats, error) {
	return &entity.LeadStats{}, nil
}

func (s *memLeadStore) get(id string) entity.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leads[id]
}

// recordingMail accepts every send unless the recipient is listed in fail.
type recordingMail struct {
	mu   sync.Mutex
	sent []entity.EmailRequest
	fail map[string]string
}

func (m *recordingMail) Send(_ context.Context, req entity.EmailRequest) entity.SendResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reason, ok := m.fail[req.To]; ok {
		return entity.SendFailed(reason)
	}
	m.sent = append(m.sent, req)
	return entity.SendOK("<msg@test>")
}

func (m *recordingMail) kinds() []entity.EmailKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.EmailKind, 0, len(m.sent))
	for _, r := range m.sent {
		out = append(out, r.Kind)
	}
	return out
}

// hookMail runs during the first Send, while that mail is in flight.
type hookMail struct {
	recordingMail
	once   sync.Once
	during func()
}

func (m *hookMail) Send(ctx context.Context, req entity.EmailRequest) entity.SendResult {
	m.once.Do(m.during)
	return m.recordingMail.Send(ctx, req)
}

func boolPtr(b bool) *bool { return &b }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
