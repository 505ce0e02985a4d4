// internal/services/progress_service.go
package services

import (
	"fmt"
	"sync"
	"time"
)

// Progress statuses
const (
	ProgressRunning   = "running"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

// ProgressUpdate is one progress event of a run
type ProgressUpdate struct {
	Progress int    `json:"progress"` // 0-100
	Message  string `json:"message"`
	Status   string `json:"status"` // running, completed, failed
}

// ProgressTracker tracks the progress of one run
type ProgressTracker struct {
	TaskID      string
	Progress    int
	Message     string
	Status      string
	StartTime   time.Time
	UpdateTime  time.Time
	Subscribers map[chan ProgressUpdate]bool
	Done        chan struct{}
	mutex       sync.Mutex
}

// ProgressService keeps every progress tracker by task id
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

// NewProgressService creates an empty progress service
func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// RunTaskID names the progress task of one session run
func RunTaskID(sessionID string, generation uint64) string {
	return fmt.Sprintf("%s-%d", sessionID, generation)
}

// CreateTracker returns the tracker for taskID, creating it when missing
func (s *ProgressService) CreateTracker(taskID string) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[taskID]; exists {
		return tracker
	}

	now := time.Now()
	tracker := &ProgressTracker{
		TaskID:      taskID,
		Message:     "Preparando agente...",
		Status:      ProgressRunning,
		StartTime:   now,
		UpdateTime:  now,
		Subscribers: make(map[chan ProgressUpdate]bool),
		Done:        make(chan struct{}),
	}

	s.trackers[taskID] = tracker
	return tracker
}

// GetTracker looks up a tracker
func (s *ProgressService) GetTracker(taskID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[taskID]
	return tracker, exists
}

// UpdateProgress raises the progress; it never moves backwards
func (t *ProgressTracker) UpdateProgress(progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.finished() {
		return
	}
	if progress > t.Progress {
		t.Progress = progress
	}
	if message != "" {
		t.Message = message
	}
	t.UpdateTime = time.Now()
	t.broadcast()
}

// Complete marks the run finished
func (t *ProgressTracker) Complete(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.finished() {
		return
	}
	t.Progress = 100
	if message == "" {
		message = "Plano de vídeo pronto"
	}
	t.Message = message
	t.Status = ProgressCompleted
	t.UpdateTime = time.Now()
	t.broadcast()
	close(t.Done)
}

// Fail marks the run aborted
func (t *ProgressTracker) Fail(reason string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.finished() {
		return
	}
	t.Message = fmt.Sprintf("Execução interrompida: %s", reason)
	t.Status = ProgressFailed
	t.UpdateTime = time.Now()
	t.broadcast()
	close(t.Done)
}

// Snapshot returns the current progress
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.current()
}

// Subscribe registers a channel that first receives the current state
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan ProgressUpdate, 10)
	t.Subscribers[subscriber] = true
	subscriber <- t.current()
	return subscriber
}

// Unsubscribe removes and closes a subscriber channel
func (t *ProgressTracker) Unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.Subscribers[subscriber]; !ok {
		return
	}
	delete(t.Subscribers, subscriber)
	close(subscriber)
}

// CleanupCompletedTasks drops finished trackers older than maxAge
func (s *ProgressService) CleanupCompletedTasks(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	removed := 0
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		isOld := tracker.finished() && now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()

		if isOld {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}

func (t *ProgressTracker) current() ProgressUpdate {
	return ProgressUpdate{Progress: t.Progress, Message: t.Message, Status: t.Status}
}

func (t *ProgressTracker) finished() bool {
	return t.Status == ProgressCompleted || t.Status == ProgressFailed
}

// broadcast sends without blocking; slow subscribers miss intermediate updates
func (t *ProgressTracker) broadcast() {
	update := t.current()
	for subscriber := range t.Subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
}
