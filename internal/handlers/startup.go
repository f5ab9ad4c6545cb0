package handlers

import (
	"net/http"
	"sync"
	"sync/atomic"
)

// Startup steps reported by the readiness probe
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepCache      = "Connecting cache"
	StepServices   = "Initializing services"
	StepReady      = "Server ready"
)

// StartupStep is one initialization step
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu      sync.RWMutex
	ready   bool
	current string
	steps   []StartupStep
}

// NewStartupStatus creates a tracker with every step pending
func NewStartupStatus() *StartupStatus {
	names := []string{StepDatabase, StepMigrations, StepCache, StepServices, StepReady}
	steps := make([]StartupStep, len(names))
	for i, name := range names {
		steps[i] = StartupStep{Name: name}
	}
	return &StartupStatus{current: "Initializing...", steps: steps}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and moves on to the next pending one
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
		}
	}
	for _, step := range s.steps {
		if !step.Completed {
			s.current = step.Name
			return
		}
	}
}

// MarkReady marks initialization as complete
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = StepReady
	for i := range s.steps {
		s.steps[i].Completed = true
	}
}

// Progress returns the percentage of completed steps
func (s *StartupStatus) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressLocked()
}

func (s *StartupStatus) progressLocked() int {
	if len(s.steps) == 0 {
		return 100
	}
	done := 0
	for _, step := range s.steps {
		if step.Completed {
			done++
		}
	}
	return done * 100 / len(s.steps)
}

// ServeHTTP answers readiness probes: 200 once ready, 503 before
func (s *StartupStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	body := map[string]any{
		"ready":    s.ready,
		"current":  s.current,
		"progress": s.progressLocked(),
		"steps":    append([]StartupStep(nil), s.steps...),
	}
	ready := s.ready
	s.mu.RUnlock()

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

// BootHandler answers probes while the application initializes and hands
// every request to the API once it is mounted.
type BootHandler struct {
	startup *StartupStatus
	api     atomic.Pointer[http.Handler]
}

// NewBootHandler creates a boot handler reporting the given startup status
func NewBootHandler(startup *StartupStatus) *BootHandler {
	return &BootHandler{startup: startup}
}

// Mount switches all traffic to h
func (b *BootHandler) Mount(h http.Handler) {
	b.api.Store(&h)
}

func (b *BootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := b.api.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}
	switch r.URL.Path {
	case "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "starting"})
	case "/ready":
		b.startup.ServeHTTP(w, r)
	default:
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrStarting})
	}
}
