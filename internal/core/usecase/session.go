package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Nzyazin/fxwidget/internal/core/logger"
	"github.com/Nzyazin/fxwidget/internal/core/metrics"
	"github.com/google/uuid"
)

// SessionStore keeps one widget per browser session in memory.
type SessionStore struct {
	opts    WidgetOptions
	idleTTL time.Duration
	log     logger.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	widgets map[uuid.UUID]*Widget
}

func NewSessionStore(opts WidgetOptions, idleTTL time.Duration) *SessionStore {
	return &SessionStore{
		opts:    opts,
		idleTTL: idleTTL,
		log:     opts.Log,
		metrics: opts.Metrics,
		widgets: map[uuid.UUID]*Widget{},
	}
}

func (s *SessionStore) Create() *Widget {
	w := NewWidget(uuid.New(), s.opts)

	s.mu.Lock()
	s.widgets[w.ID()] = w
	s.mu.Unlock()

	s.metrics.SessionOpened()
	s.log.Info("Widget session created", logger.StringField("widget_id", w.ID().String()))
	return w
}

func (s *SessionStore) Get(id uuid.UUID) (*Widget, error) {
	s.mu.Lock()
	w, ok := s.widgets[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrWidgetNotFound
	}
	w.Touch()
	return w, nil
}

func (s *SessionStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	w, ok := s.widgets[id]
	delete(s.widgets, id)
	s.mu.Unlock()
	if !ok {
		return ErrWidgetNotFound
	}

	w.Close()
	s.metrics.SessionClosed()
	s.log.Info("Widget session closed", logger.StringField("widget_id", id.String()))
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// EvictIdle closes every widget not used since now minus the idle TTL.
func (s *SessionStore) EvictIdle(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTTL)

	var idle []*Widget
	s.mu.Lock()
	for id, w := range s.widgets {
		if w.LastSeen().Before(cutoff) {
			idle = append(idle, w)
			delete(s.widgets, id)
		}
	}
	s.mu.Unlock()

	for _, w := range idle {
		w.Close()
		s.metrics.SessionClosed()
	}
	if len(idle) > 0 {
		s.log.Info("Evicted idle widget sessions", logger.IntField("count", len(idle)))
	}
	return len(idle)
}

// Run evicts idle sessions until ctx is done.
func (s *SessionStore) Run(ctx context.Context) {
	if s.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(s.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.EvictIdle(now)
		}
	}
}

func (s *SessionStore) Close() {
	s.mu.Lock()
	widgets := s.widgets
	s.widgets = map[uuid.UUID]*Widget{}
	s.mu.Unlock()

	for _, w := range widgets {
		w.Close()
		s.metrics.SessionClosed()
	}
}
