package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mydiagai/internal/catalog"
	"mydiagai/internal/intake"
	"mydiagai/internal/scoring"
)

const DefaultAnalysisDelay = 2 * time.Second

// AfterFunc runs fn once d has elapsed. The returned stop func prevents fn
// from running if it has not started yet.
type AfterFunc func(d time.Duration, fn func()) (stop func() bool)

func timerAfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

type Options struct {
	Catalog       *catalog.Catalog
	Scorer        scoring.Scorer
	AnalysisDelay time.Duration
	// ScoreTimeout bounds a single scorer call; zero means no bound.
	ScoreTimeout time.Duration
	AfterFunc    AfterFunc
	Logger       zerolog.Logger
	Now          func() time.Time
}

// pendingAnalysis is the scheduled completion of one StartAnalysis call.
// It only applies while the session version still equals version.
type pendingAnalysis struct {
	version uint64
	stop    func() bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Session is the state machine of one diagnostic interaction. All
// transitions are serialized; the presentation layer reads it through
// Snapshot and never touches its fields.
type Session struct {
	id        uuid.UUID
	catalog   *catalog.Catalog
	scorer    scoring.Scorer
	delay     time.Duration
	timeout   time.Duration
	afterFunc AfterFunc
	logger    zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	version    uint64
	step       Step
	patient    *intake.PatientRecord
	selected   []string
	candidates []scoring.CandidateCondition
	lastErr    error
	pending    *pendingAnalysis
	closed     bool
	createdAt  time.Time
	updatedAt  time.Time
}

func NewSession(opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewStatic()
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = timerAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AnalysisDelay < 0 {
		opts.AnalysisDelay = 0
	}

	id := uuid.New()
	now := opts.Now()
	return &Session{
		id:        id,
		catalog:   opts.Catalog,
		scorer:    opts.Scorer,
		delay:     opts.AnalysisDelay,
		timeout:   opts.ScoreTimeout,
		afterFunc: opts.AfterFunc,
		logger:    opts.Logger.With().Str("session_id", id.String()).Logger(),
		now:       opts.Now,
		step:      StepIntake,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// SubmitPatient validates the intake form and advances to symptom
// selection. A rejected form leaves the session in intake.
func (s *Session) SubmitPatient(rawName, rawAge, rawGender string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("submit patient", StepIntake); err != nil {
		return err
	}
	p, err := intake.Validate(rawName, rawAge, rawGender)
	if err != nil {
		return err
	}
	s.patient = &p
	s.step = StepSymptomSelection
	s.touch()
	return nil
}

// ToggleSymptom adds id to the selection when absent and removes it when
// present. It reports whether id is selected afterwards.
func (s *Session) ToggleSymptom(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("toggle symptom", StepSymptomSelection); err != nil {
		return false, err
	}
	if !s.catalog.Contains(id) {
		s.logger.Warn().Str("symptom_id", id).Msg("ignoring unknown symptom")
		return false, fmt.Errorf("%w: %q", ErrUnknownSymptom, id)
	}

	s.touch()
	for i, sel := range s.selected {
		if sel == id {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return false, nil
		}
	}
	s.selected = append(s.selected, id)
	return true, nil
}

// Back returns to intake so the patient can be edited. Patient and
// selection are kept.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect("back", StepSymptomSelection); err != nil {
		return err
	}
	s.step = StepIntake
	s.touch()
	return nil
}

// StartAnalysis schedules scoring after the analysis delay. A second call
// while analyzing is a no-op. The scorer sees ctx's values but not its
// cancellation; only Reset and Close cancel a pending analysis.
func (s *Session) StartAnalysis(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.step == StepAnalyzing {
		return nil
	}
	if err := s.expect("start analysis", StepSymptomSelection); err != nil {
		return err
	}
	if len(s.selected) == 0 {
		return ErrEmptySelection
	}

	s.version++
	s.step = StepAnalyzing
	s.lastErr = nil
	s.touch()

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &pendingAnalysis{
		version: s.version,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	in := scoring.Input{Patient: *s.patient, Symptoms: s.selection()}
	s.pending = p
	p.stop = s.afterFunc(s.delay, func() { s.complete(ctx, p, in) })

	s.logger.Info().Int("symptoms", len(in.Symptoms)).Uint64("version", p.version).Msg("analysis started")
	return nil
}

func (s *Session) complete(ctx context.Context, p *pendingAnalysis, in scoring.Input) {
	scoreCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	candidates, err := s.scorer.Score(scoreCtx, in)
	if err == nil && len(candidates) == 0 {
		err = scoring.ErrNoCandidates
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != p || s.version != p.version || s.step != StepAnalyzing {
		s.logger.Debug().Uint64("version", p.version).Uint64("current", s.version).Msg("discarding stale analysis")
		return
	}
	s.pending = nil
	s.version++
	p.cancel()
	defer close(p.done)

	if err != nil {
		s.step = StepSymptomSelection
		s.lastErr = err
		s.touch()
		s.logger.Error().Err(err).Msg("analysis failed")
		return
	}
	s.candidates = scoring.Rank(candidates)
	s.step = StepComplete
	s.touch()
	s.logger.Info().Int("candidates", len(s.candidates)).Msg("analysis complete")
}

// Reset clears the session back to an empty intake from any step. A
// pending analysis is discarded.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.abortPending()
	s.version++
	s.step = StepIntake
	s.patient = nil
	s.selected = nil
	s.candidates = nil
	s.lastErr = nil
	s.touch()
	return nil
}

// Close ends the session. Later transitions fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.abortPending()
	s.version++
	s.closed = true
	s.touch()
}

// Wait blocks until no analysis is pending or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		Version:          s.version,
		Step:             s.step,
		SelectedSymptoms: s.selection(),
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
	if s.patient != nil {
		p := *s.patient
		snap.Patient = &p
	}
	if s.candidates != nil {
		snap.Candidates = scoring.Rank(s.candidates)
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// LastActive is the time of the last transition.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) Report() (DiagnosticReport, error) {
	return Render(s.Snapshot(), s.catalog)
}

func (s *Session) expect(action string, step Step) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.step != step {
		return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, s.step)
	}
	return nil
}

// abortPending must be called with mu held.
func (s *Session) abortPending() {
	p := s.pending
	if p == nil {
		return
	}
	s.pending = nil
	p.stop()
	p.cancel()
	close(p.done)
	s.logger.Info().Uint64("version", p.version).Msg("pending analysis cancelled")
}

func (s *Session) selection() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}
