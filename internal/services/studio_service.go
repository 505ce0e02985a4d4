// internal/services/studio_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/AgenticVideoStudio/internal/catalog"
	apperrors "github.com/Corphon/AgenticVideoStudio/internal/errors"
	"github.com/Corphon/AgenticVideoStudio/internal/models"
	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

// SessionSnapshot is the read-only view of a session handed to the API
type SessionSnapshot struct {
	SessionID string `json:"session_id"`
	WorkflowState
	CanSubmit     bool      `json:"can_submit"`
	CanReset      bool      `json:"can_reset"`
	InvalidFields []string  `json:"invalid_fields,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RunTicket identifies a started run
type RunTicket struct {
	RunID      string `json:"run_id"`
	Generation uint64 `json:"generation"`
}

type session struct {
	id          string
	createdAt   time.Time
	lastActive  time.Time
	state       WorkflowState
	runID       string
	cancel      context.CancelFunc
	subscribers map[chan SessionSnapshot]struct{}
}

// StudioOptions wires the collaborators of a StudioService
type StudioOptions struct {
	Catalog    *catalog.Catalog
	Sequencer  *Sequencer
	Locks      *LockManager
	Progress   *ProgressService
	Metrics    *utils.WorkflowMetrics
	Logger     *utils.Logger
	Clock      Clock
	SessionTTL time.Duration
}

// StudioService owns every studio session and drives their runs
type StudioService struct {
	catalog    *catalog.Catalog
	sequencer  *Sequencer
	locks      *LockManager
	progress   *ProgressService
	metrics    *utils.WorkflowMetrics
	logger     *utils.Logger
	clock      Clock
	sessionTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*session

	baseCtx    context.Context
	baseCancel context.CancelFunc
	runs       sync.WaitGroup
}

// NewStudioService creates a studio service, filling unset options with defaults
func NewStudioService(opts StudioOptions) *StudioService {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Sequencer == nil {
		opts.Sequencer = NewSequencer(opts.Clock, 650*time.Millisecond, 250*time.Millisecond)
	}
	if opts.Locks == nil {
		opts.Locks = NewLockManager(30 * time.Minute)
	}
	if opts.Progress == nil {
		opts.Progress = NewProgressService()
	}
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewWorkflowMetricsWith(utils.NewMetricsCollector(), opts.Logger)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &StudioService{
		catalog:    opts.Catalog,
		sequencer:  opts.Sequencer,
		locks:      opts.Locks,
		progress:   opts.Progress,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		clock:      opts.Clock,
		sessionTTL: opts.SessionTTL,
		sessions:   make(map[string]*session),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Catalog returns the catalog sessions are built from
func (s *StudioService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Progress returns the run progress service
func (s *StudioService) Progress() *ProgressService {
	return s.progress
}

// CreateSession starts a session with the default briefing and pending steps
func (s *StudioService) CreateSession() SessionSnapshot {
	now := s.clock.Now()
	sess := &session{
		id:          uuid.NewString(),
		createdAt:   now,
		lastActive:  now,
		state:       NewWorkflowState(s.catalog.DefaultBriefing(), s.catalog.InitialSteps()),
		subscribers: make(map[chan SessionSnapshot]struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("Session created", map[string]interface{}{"session_id": sess.id})
	return s.snapshot(sess)
}

// GetSession returns the current snapshot of a session
func (s *StudioService) GetSession(sessionID string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.withSession(sessionID, func(sess *session) error {
		snap = s.snapshot(sess)
		return nil
	})
	return snap, err
}

// UpdateBriefing replaces the form fields. Free text is stored as typed;
// tone, format and duration must come from the catalog.
func (s *StudioService) UpdateBriefing(sessionID string, input models.BriefingInput) (SessionSnapshot, error) {
	input, err := s.normalizeBriefing(input)
	if err != nil {
		return SessionSnapshot{}, err
	}

	var snap SessionSnapshot
	err = s.withSession(sessionID, func(sess *session) error {
		next, _ := Reduce(sess.state, Action{Type: ActionUpdateBriefing, Briefing: input})
		sess.state = next
		sess.lastActive = s.clock.Now()
		snap = s.publish(sess)
		return nil
	})
	return snap, err
}

// StartRun validates the briefing, computes the result and launches the sequencer
func (s *StudioService) StartRun(sessionID string) (RunTicket, error) {
	var ticket RunTicket
	err := s.withSession(sessionID, func(sess *session) error {
		if sess.state.IsRunning {
			return apperrors.NewConflictError("a run is already in progress", nil)
		}
		if fields := sess.state.Briefing.InvalidFields(); len(fields) > 0 {
			return apperrors.NewValidationError("briefing is incomplete", fields...)
		}

		next, ok := Reduce(sess.state, Action{Type: ActionStartRun})
		if !ok {
			return apperrors.NewConflictError("a run is already in progress", nil)
		}
		sess.state = next
		sess.lastActive = s.clock.Now()

		plan := RunPlan{
			Generation: next.Generation,
			Briefing:   next.Briefing,
			Result:     GenerateWorkflowResult(next.Briefing),
			Steps:      stepIDs(next.Steps),
		}
		runCtx, cancel := context.WithCancel(s.baseCtx)
		sess.cancel = cancel
		sess.runID = RunTaskID(sess.id, plan.Generation)
		tracker := s.progress.CreateTracker(sess.runID)

		s.metrics.RecordRunStarted(sess.id)
		s.publish(sess)

		s.runs.Add(1)
		go s.execute(runCtx, sess, plan, tracker)

		ticket = RunTicket{RunID: sess.runID, Generation: plan.Generation}
		return nil
	})
	return ticket, err
}

// Reset stops any in-flight run and restores the initial step list.
// The briefing is kept.
func (s *StudioService) Reset(sessionID string) (SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.withSession(sessionID, func(sess *session) error {
		wasRunning := sess.state.IsRunning
		if sess.cancel != nil {
			sess.cancel()
			sess.cancel = nil
		}
		if wasRunning {
			if tracker, ok := s.progress.GetTracker(sess.runID); ok {
				tracker.Fail("reset")
			}
			s.metrics.RecordRunAborted()
		}

		next, _ := Reduce(sess.state, Action{Type: ActionReset, Initial: s.catalog.InitialSteps()})
		sess.state = next
		sess.runID = ""
		sess.lastActive = s.clock.Now()
		s.metrics.RecordReset()

		s.logger.Info("Session reset", map[string]interface{}{
			"session_id":  sess.id,
			"was_running": wasRunning,
			"generation":  next.Generation,
		})
		snap = s.publish(sess)
		return nil
	})
	return snap, err
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one. The returned func releases it.
func (s *StudioService) Subscribe(sessionID string) (<-chan SessionSnapshot, func(), error) {
	ch := make(chan SessionSnapshot, 8)
	err := s.withSession(sessionID, func(sess *session) error {
		sess.subscribers[ch] = struct{}{}
		ch <- s.snapshot(sess)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = s.withSession(sessionID, func(sess *session) error {
				if _, ok := sess.subscribers[ch]; ok {
					delete(sess.subscribers, ch)
					close(ch)
				}
				return nil
			})
		})
	}
	return ch, unsubscribe, nil
}

// CleanupIdleSessions evicts idle sessions that are not running
func (s *StudioService) CleanupIdleSessions() int {
	now := s.clock.Now()

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var removed []string
	for _, id := range ids {
		_ = s.withSession(id, func(sess *session) error {
			if sess.state.IsRunning || now.Sub(sess.lastActive) <= s.sessionTTL {
				return nil
			}
			for ch := range sess.subscribers {
				delete(sess.subscribers, ch)
				close(ch)
			}
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
			removed = append(removed, id)
			return nil
		})
	}
	for _, id := range removed {
		s.locks.Forget(id)
	}

	s.progress.CleanupCompletedTasks(s.sessionTTL)
	if len(removed) > 0 {
		s.logger.Info("Idle sessions evicted", map[string]interface{}{"count": len(removed)})
	}
	return len(removed)
}

// SessionCount returns the number of live sessions
func (s *StudioService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown cancels every run and waits for the sequencers to exit
func (s *StudioService) Shutdown(ctx context.Context) error {
	s.baseCancel()

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.locks.Stop()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs the sequencer and funnels its actions through the session lock
func (s *StudioService) execute(ctx context.Context, sess *session, plan RunPlan, tracker *ProgressTracker) {
	defer s.runs.Done()

	started := s.clock.Now()
	var stepStarted time.Time
	completed := 0

	dispatch := func(a Action) bool {
		accepted := false
		_ = s.locks.ExecuteWithSessionLock(sess.id, func() error {
			next, ok := Reduce(sess.state, a)
			if !ok {
				return nil
			}
			accepted = true
			sess.state = next
			now := s.clock.Now()
			sess.lastActive = now

			switch a.Type {
			case ActionStepStarted:
				stepStarted = now
			case ActionStepCompleted:
				completed++
				s.metrics.RecordStepCompleted(string(a.StepID), now.Sub(stepStarted))
				tracker.UpdateProgress(completed*100/len(plan.Steps), stepTitle(next.Steps, a.StepID))
			case ActionRunFinished:
				if sess.cancel != nil {
					sess.cancel()
					sess.cancel = nil
				}
				tracker.Complete("")
				s.metrics.RecordRunCompleted(now.Sub(started))
			}
			s.publish(sess)
			return nil
		})
		return accepted
	}

	err := s.sequencer.Run(ctx, plan, dispatch)
	switch {
	case err == nil:
		s.logger.Info("Run completed", map[string]interface{}{
			"session_id": sess.id,
			"generation": plan.Generation,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, ErrRunSuperseded):
		s.logger.Debug("Run stopped", map[string]interface{}{
			"session_id": sess.id,
			"generation": plan.Generation,
			"reason":     err.Error(),
		})
		// shutdown cancels without a reset, so the run must be failed here
		tracker.Fail(err.Error())
	default:
		s.logger.Error("Run failed", map[string]interface{}{
			"session_id": sess.id,
			"error":      err.Error(),
		})
		tracker.Fail(err.Error())
	}
}

func (s *StudioService) withSession(sessionID string, fn func(*session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFoundError("session not found: "+sessionID, nil)
	}
	return s.locks.ExecuteWithSessionLock(sessionID, func() error {
		s.mu.RLock()
		_, alive := s.sessions[sessionID]
		s.mu.RUnlock()
		if !alive {
			return apperrors.NewNotFoundError("session not found: "+sessionID, nil)
		}
		return fn(sess)
	})
}

func (s *StudioService) normalizeBriefing(input models.BriefingInput) (models.BriefingInput, error) {
	var invalid []string
	if !s.catalog.HasTone(input.Tone) {
		invalid = append(invalid, "tone")
	}
	if !s.catalog.HasFormat(input.Format) {
		invalid = append(invalid, "format")
	}
	duration, ok := models.ParseDuration(string(input.Duration))
	if !ok {
		invalid = append(invalid, "duration")
	}
	if len(invalid) > 0 {
		return input, apperrors.NewValidationError("unknown briefing option", invalid...)
	}
	input.Duration = duration
	return input, nil
}

// snapshot must be called with the session lock held
func (s *StudioService) snapshot(sess *session) SessionSnapshot {
	state := sess.state.Clone()
	invalid := state.Briefing.InvalidFields()
	return SessionSnapshot{
		SessionID:     sess.id,
		WorkflowState: state,
		CanSubmit:     !state.IsRunning && len(invalid) == 0,
		CanReset:      !state.IsRunning,
		InvalidFields: invalid,
		RunID:         sess.runID,
		CreatedAt:     sess.createdAt,
		UpdatedAt:     sess.lastActive,
	}
}

// publish fans the snapshot out to subscribers in mutation order; a full
// subscriber loses its oldest pending snapshot. The session lock must be held.
func (s *StudioService) publish(sess *session) SessionSnapshot {
	snap := s.snapshot(sess)
	for ch := range sess.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	return snap
}

func stepIDs(steps []models.Step) []models.StepID {
	ids := make([]models.StepID, len(steps))
	for i, step := range steps {
		ids[i] = step.ID
	}
	return ids
}

func stepTitle(steps []models.Step, id models.StepID) string {
	if i := stepIndex(steps, id); i >= 0 {
		return steps[i].Title
	}
	return string(id)
}
