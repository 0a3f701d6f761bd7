// Package autosave keeps a client-side copy of a multi-step application form
// and pushes debounced snapshots of it to the draft endpoint.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
)

const (
	DefaultDelay       = 800 * time.Millisecond
	DefaultSaveTimeout = 10 * time.Second
	DefaultMaxSteps    = 4
)

var ErrClosed = errors.New("autosave: scheduler closed")

// Saver persists one snapshot of the form.
type Saver interface {
	SaveDraft(ctx context.Context, step int, data map[string]any) error
}

// Loader fetches the remote draft. A nil draft means there is none.
type Loader interface {
	LoadDraft(ctx context.Context) (*Draft, error)
}

// Draft is the server's view of an in-progress application.
type Draft struct {
	ApplicationID string         `json:"applicationId"`
	CurrentStep   int            `json:"currentStep"`
	Data          map[string]any `json:"data"`
}

type snapshot struct {
	CurrentStep int            `json:"currentStep"`
	Data        map[string]any `json:"data"`
}

// Scheduler holds the form state. It is safe for concurrent use.
type Scheduler struct {
	saver       Saver
	loader      Loader
	logger      *slog.Logger
	delay       time.Duration
	saveTimeout time.Duration
	maxSteps    int

	mu        sync.Mutex
	fields    map[string]any
	step      int
	lastSaved []byte
	timer     *time.Timer
	restored  bool
	closed    bool
}

type Option func(*Scheduler)

func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithSaveTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

func WithMaxSteps(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(saver Saver, loader Loader, opts ...Option) *Scheduler {
	s := &Scheduler{
		saver:       saver,
		loader:      loader,
		logger:      slog.Default(),
		delay:       DefaultDelay,
		saveTimeout: DefaultSaveTimeout,
		maxSteps:    DefaultMaxSteps,
		fields:      make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetField records one mutation and restarts the debounce timer.
func (s *Scheduler) SetField(name string, value any) {
	s.SetFields(map[string]any{name: value})
}

// SetFields records several mutations and restarts the debounce timer.
func (s *Scheduler) SetFields(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	maps.Copy(s.fields, values)
	s.scheduleLocked()
}

// Fields returns a copy of the current form state.
func (s *Scheduler) Fields() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.fields)
}

func (s *Scheduler) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Next saves the step being left, advances and saves again. The step never
// moves past the last one.
func (s *Scheduler) Next(ctx context.Context) error {
	return s.move(ctx, func(step int) int { return min(step+1, s.maxSteps-1) })
}

// Previous saves the step being left, steps back and saves again.
func (s *Scheduler) Previous(ctx context.Context) error {
	return s.move(ctx, func(step int) int { return max(step-1, 0) })
}

// GoTo jumps to step and saves immediately.
func (s *Scheduler) GoTo(ctx context.Context, step int) error {
	if step < 0 || step >= s.maxSteps {
		return fmt.Errorf("autosave: step %d out of range [0,%d)", step, s.maxSteps)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopLocked()
	s.step = step
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *Scheduler) move(ctx context.Context, next func(int) int) error {
	leaveErr := s.Flush(ctx)
	if errors.Is(leaveErr, ErrClosed) {
		return leaveErr
	}

	s.mu.Lock()
	s.step = next(s.step)
	s.mu.Unlock()

	return errors.Join(leaveErr, s.Flush(ctx))
}

// Flush cancels any pending debounce and saves the snapshot now. A snapshot
// identical to the last saved one is skipped.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopLocked()
	s.mu.Unlock()
	return s.save(ctx)
}

// Restore fetches the remote draft on the first call only. The offer is nil
// when there is nothing to restore.
func (s *Scheduler) Restore(ctx context.Context) (*RestoreOffer, error) {
	s.mu.Lock()
	if s.restored || s.loader == nil {
		s.mu.Unlock()
		return nil, nil
	}
	s.restored = true
	s.mu.Unlock()

	draft, err := s.loader.LoadDraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	if draft == nil {
		return nil, nil
	}
	return &RestoreOffer{Draft: *draft, scheduler: s}, nil
}

// Close stops the timer and flushes anything not yet saved.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked()
	s.mu.Unlock()

	err := s.save(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

func (s *Scheduler) scheduleLocked() {
	s.stopLocked()
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		s.logger.WarnContext(ctx, "autosave failed", "error", err)
	}
}

// save sends the current snapshot. Concurrent saves are not ordered; the
// last one to succeed sets lastSaved.
func (s *Scheduler) save(ctx context.Context) error {
	s.mu.Lock()
	snap := snapshot{CurrentStep: s.step, Data: maps.Clone(s.fields)}
	encoded, err := json.Marshal(snap)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if bytes.Equal(encoded, s.lastSaved) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.saver.SaveDraft(ctx, snap.CurrentStep, snap.Data); err != nil {
		return fmt.Errorf("saving step %d: %w", snap.CurrentStep, err)
	}

	s.mu.Lock()
	s.lastSaved = encoded
	s.mu.Unlock()
	return nil
}

// RestoreOffer is a remote draft the caller may choose to resume.
type RestoreOffer struct {
	Draft     Draft
	scheduler *Scheduler
}

// Accept replaces the local form with the remote draft. The restored state
// counts as saved.
func (o *RestoreOffer) Accept() {
	s := o.scheduler
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.step = min(max(o.Draft.CurrentStep, 0), s.maxSteps-1)
	s.fields = maps.Clone(o.Draft.Data)
	if s.fields == nil {
		s.fields = make(map[string]any)
	}
	if encoded, err := json.Marshal(snapshot{CurrentStep: s.step, Data: s.fields}); err == nil {
		s.lastSaved = encoded
	}
}
