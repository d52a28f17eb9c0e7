package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

const DefaultSendTimeout = 30 * time.Second

// Locker is the cross-instance guard for a pass. distlock.DistLock satisfies it.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

// DefaultLockTTL is how long the cross-instance lock survives without a refresh.
const DefaultLockTTL = 15 * time.Minute

type SweepFailure struct {
	LeadID string           `json:"leadId"`
	Email  string           `json:"email"`
	Kind   entity.EmailKind `json:"kind,omitempty"`
	Reason string           `json:"reason"`
}

// SweepReport summarizes one automation pass.
type SweepReport struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Candidates int            `json:"candidates"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Stopped    int            `json:"stopped"`
	Skipped    int            `json:"skipped"`
	Failures   []SweepFailure `json:"failures"`
	Aborted    bool           `json:"aborted"`
	Error      string         `json:"error,omitempty"`
}

func (r *SweepReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result is "aborted", "partial" when at least one lead failed, or "ok".
func (r *SweepReport) Result() string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}

func (r *SweepReport) fail(lead *entity.Lead, kind entity.EmailKind, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, SweepFailure{
		LeadID: lead.ID,
		Email:  lead.Email,
		Kind:   kind,
		Reason: reason,
	})
}

type SweeperOption func(*Sweeper)

func WithEventPublisher(p EventPublisher) SweeperOption {
	return func(s *Sweeper) { s.events = p }
}

func WithMetrics(m MetricsRecorder) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// WithLocker guards passes across instances. The lock is refreshed to ttl
// before every lead, so a long pass keeps it.
func WithLocker(l Locker, ttl time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithClock(c Clock) SweeperOption {
	return func(s *Sweeper) { s.clock = c }
}

func WithSendTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// Sweeper runs automation passes over the candidate leads. Only one pass
// runs at a time per process, and per deployment when a Locker is set.
type Sweeper struct {
	repo        LeadRepository
	mail        MailGateway
	events      EventPublisher
	metrics     MetricsRecorder
	locker      Locker
	lockTTL     time.Duration
	clock       Clock
	sendTimeout time.Duration
	log         zerolog.Logger

	running sync.Mutex
}

func NewSweeper(repo LeadRepository, mail MailGateway, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:        repo,
		mail:        mail,
		clock:       systemClock,
		sendTimeout: DefaultSendTimeout,
		lockTTL:     DefaultLockTTL,
		log:         logger.Component("sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunPass evaluates every candidate lead once. It returns ErrSweepInProgress
// when another pass holds the guard. Per-lead failures are collected in the
// report; a failed candidate query or a lost lock yields an aborted report,
// not an error.
func (s *Sweeper) RunPass(ctx context.Context) (*SweepReport, error) {
	if !s.running.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.running.Unlock()

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire automation lock: %w", err)
		}
		if !ok {
			return nil, ErrSweepInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn().Err(err).Msg("release automation lock")
			}
		}()
	}

	now := s.clock()
	report := &SweepReport{StartedAt: now, Failures: []SweepFailure{}}

	leads, err := s.repo.FindCandidates(ctx)
	if err != nil {
		report.Aborted = true
		report.Error = err.Error()
		s.finish(report)
		s.log.Error().Err(err).Msg("candidate query failed, pass aborted")
		return report, nil
	}
	report.Candidates = len(leads)

	for i := range leads {
		if ctx.Err() != nil {
			report.Skipped += len(leads) - i
			s.log.Warn().Err(ctx.Err()).Int("remaining", len(leads)-i).Msg("pass interrupted")
			break
		}
		if err := s.extendLock(ctx); err != nil {
			report.Skipped += len(leads) - i
			report.Aborted = true
			report.Error = "automation lock lost: " + err.Error()
			s.log.Error().Err(err).Int("remaining", len(leads)-i).Msg("automation lock lost, pass stopped")
			break
		}
		s.processLead(ctx, &leads[i], now, report)
	}

	s.finish(report)
	s.log.Info().
		Int("candidates", report.Candidates).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("stopped", report.Stopped).
		Int("skipped", report.Skipped).
		Dur("took", report.Duration()).
		Msg("automation pass finished")

	return report, nil
}

func (s *Sweeper) extendLock(ctx context.Context) error {
	if s.locker == nil {
		return nil
	}
	return s.locker.Extend(ctx, s.lockTTL)
}

func (s *Sweeper) finish(report *SweepReport) {
	report.FinishedAt = s.clock()
	if s.metrics != nil {
		s.metrics.RecordSweep(report)
	}
}

func (s *Sweeper) processLead(ctx context.Context, lead *entity.Lead, now time.Time, report *SweepReport) {
	action := Decide(lead, now)
	log := s.log.With().
		Str(logger.LEAD, lead.ID).
		Str(logger.EMAIL, logger.RedactEmail(lead.Email)).
		Str(logger.STATUS, string(lead.Status)).
		Logger()

	switch action.Type {
	case ActionStop:
		err := s.repo.MarkStopped(ctx, lead.ID, now)
		if errors.Is(err, entity.ErrLeadNotFound) {
			report.Skipped++
			log.Debug().Msg("lead changed before stop, skipped")
			return
		}
		if err != nil {
			report.fail(lead, "", "mark stopped: "+err.Error())
			log.Error().Err(err).Msg("mark stopped")
			return
		}
		report.Stopped++
		log.Info().Msg("automation stopped for lead")

		stopped := *lead
		stopped.Status = entity.StatusStopped
		publishEvent(ctx, s.events, log, entity.NewLeadEvent(entity.EventLeadStopped, &stopped, now))

	case ActionSend:
		res := sendWithTimeout(ctx, s.mail, s.sendTimeout, entity.EmailRequest{
			To:          lead.Email,
			Kind:        action.Kind,
			DisplayName: lead.Name,
		})
		if s.metrics != nil {
			s.metrics.RecordEmail(action.Kind, res.Success)
		}
		if !res.Success {
			report.fail(lead, action.Kind, res.Reason)
			log.Warn().Str(logger.KIND, string(action.Kind)).Str("reason", res.Reason).Msg("send failed, retrying next pass")
			return
		}

		// the mail is out, so the write must not be lost to a cancelled pass
		updated, err := s.repo.RecordEmailSent(context.WithoutCancel(ctx), lead.ID, lead.Status, action.Next, now)
		if errors.Is(err, entity.ErrLeadNotFound) {
			report.Skipped++
			log.Warn().Str(logger.KIND, string(action.Kind)).Msg("lead vanished after send")
			return
		}
		if err != nil {
			report.fail(lead, action.Kind, "record send: "+err.Error())
			log.Error().Err(err).Str(logger.KIND, string(action.Kind)).Msg("record send")
			return
		}
		report.Sent++
		log.Info().
			Str(logger.KIND, string(action.Kind)).
			Str("next", string(updated.Status)).
			Int("email_count", updated.EmailCount).
			Msg("automation email sent")

		evt := entity.NewLeadEvent(entity.EventLeadEmailSent, updated, now)
		evt.EmailKind = action.Kind
		publishEvent(ctx, s.events, log, evt)

	default:
		report.Skipped++
	}
}

func sendWithTimeout(ctx context.Context, mail MailGateway, timeout time.Duration, req entity.EmailRequest) entity.SendResult {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return mail.Send(sendCtx, req)
}

// publishEvent is best effort. Lead state never depends on it.
func publishEvent(ctx context.Context, pub EventPublisher, log zerolog.Logger, evt entity.LeadEvent) {
	if pub == nil {
		return
	}
	if err := pub.PublishLeadEvent(context.WithoutCancel(ctx), evt); err != nil {
		log.Warn().Err(err).Str("event", string(evt.Type)).Msg("publish lead event")
	}
}
