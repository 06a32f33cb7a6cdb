package diagnostic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mydiagai/internal/catalog"
	"mydiagai/internal/scoring"
)

// ReportExporter renders a report into a downloadable document.
type ReportExporter interface {
	Export(r DiagnosticReport, at time.Time) ([]byte, string, error)
}

type PatientForm struct {
	Name   string
	Age    string
	Gender string
}

type Service interface {
	Symptoms() []catalog.SymptomDescriptor
	CreateSession(ctx context.Context) (Snapshot, error)
	GetSession(ctx context.Context, id uuid.UUID) (Snapshot, error)
	CloseSession(ctx context.Context, id uuid.UUID) error
	SubmitPatient(ctx context.Context, id uuid.UUID, form PatientForm) (Snapshot, error)
	ToggleSymptom(ctx context.Context, id uuid.UUID, symptomID string) (Snapshot, error)
	Back(ctx context.Context, id uuid.UUID) (Snapshot, error)
	StartAnalysis(ctx context.Context, id uuid.UUID) (Snapshot, error)
	Reset(ctx context.Context, id uuid.UUID) (Snapshot, error)
	Report(ctx context.Context, id uuid.UUID) (DiagnosticReport, error)
	ExportPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	ExpireIdle(ctx context.Context) int
}

type Config struct {
	AnalysisDelay time.Duration
	ScoreTimeout  time.Duration
	// SessionTTL is how long a session may stay untouched before
	// ExpireIdle drops it; zero keeps sessions until they are closed.
	SessionTTL time.Duration
}

type service struct {
	repo     Repository
	catalog  *catalog.Catalog
	scorer   scoring.Scorer
	exporter ReportExporter
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, cat *catalog.Catalog, scorer scoring.Scorer, exporter ReportExporter, cfg Config, logger zerolog.Logger) Service {
	return &service{
		repo:     repo,
		catalog:  cat,
		scorer:   scorer,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) Symptoms() []catalog.SymptomDescriptor {
	return s.catalog.All()
}

func (s *service) CreateSession(ctx context.Context) (Snapshot, error) {
	sess := NewSession(Options{
		Catalog:       s.catalog,
		Scorer:        s.scorer,
		AnalysisDelay: s.cfg.AnalysisDelay,
		ScoreTimeout:  s.cfg.ScoreTimeout,
		Logger:        s.logger,
		Now:           s.now,
	})
	if err := s.repo.Save(ctx, sess); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info().Str("session_id", sess.ID().String()).Int("live_sessions", s.repo.Count(ctx)).Msg("session created")
	return sess.Snapshot(), nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// CloseSession drops the session; a pending analysis never lands.
func (s *service) CloseSession(ctx context.Context, id uuid.UUID) error {
	sess, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	sess.Close()
	s.logger.Info().Str("session_id", id.String()).Msg("session closed")
	return nil
}

func (s *service) SubmitPatient(ctx context.Context, id uuid.UUID, form PatientForm) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error {
		return sess.SubmitPatient(form.Name, form.Age, form.Gender)
	})
}

func (s *service) ToggleSymptom(ctx context.Context, id uuid.UUID, symptomID string) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error {
		_, err := sess.ToggleSymptom(symptomID)
		return err
	})
}

func (s *service) Back(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.apply(ctx, id, (*Session).Back)
}

func (s *service) StartAnalysis(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.apply(ctx, id, func(sess *Session) error {
		return sess.StartAnalysis(ctx)
	})
}

func (s *service) Reset(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.apply(ctx, id, (*Session).Reset)
}

func (s *service) Report(ctx context.Context, id uuid.UUID) (DiagnosticReport, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return DiagnosticReport{}, err
	}
	return sess.Report()
}

func (s *service) ExportPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s.exporter.Export(report, s.now())
}

// ExpireIdle closes and drops sessions idle for longer than the TTL and
// reports how many went.
func (s *service) ExpireIdle(ctx context.Context) int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}
	idle := s.repo.DeleteIdle(ctx, s.now().Add(-s.cfg.SessionTTL))
	for _, sess := range idle {
		sess.Close()
	}
	if len(idle) > 0 {
		s.logger.Info().Int("expired", len(idle)).Int("live_sessions", s.repo.Count(ctx)).Msg("idle sessions expired")
	}
	return len(idle)
}

func (s *service) apply(ctx context.Context, id uuid.UUID, fn func(*Session) error) (Snapshot, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(sess); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}
