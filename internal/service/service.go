// Package service is the application facade used by the CLI and the HTTP
// API. Ledger writes go through the coordinator, imports through the ingest
// pipeline; the service adds member and due management on top.
package service

import (
	"errors"
	"time"

	"fjacquet/teamkasse/internal/coordinator"
	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/store"
	"fjacquet/teamkasse/internal/suggest"
)

// Errors returned for invalid requests.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrMemberExists = errors.New("member already exists")
	ErrDueExists    = errors.New("due already exists")
	ErrDueArchived  = errors.New("due is archived")
)

// Service bundles the ledger components.
type Service struct {
	store     store.Store
	coord     *coordinator.Coordinator
	pipeline  *ingest.Pipeline
	suggester suggest.Suggester
	ingest    ingest.Options
	logger    logging.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for member and due timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIngestOptions sets the defaults applied to every import run.
func WithIngestOptions(o ingest.Options) Option {
	return func(s *Service) {
		s.ingest = o
	}
}

// New creates a service. A nil suggester uses keyword matching.
func New(
	s store.Store,
	coord *coordinator.Coordinator,
	pipeline *ingest.Pipeline,
	suggester suggest.Suggester,
	logger logging.Logger,
	opts ...Option,
) *Service {
	if suggester == nil {
		suggester = suggest.NewKeywordSuggester(nil)
	}
	svc := &Service{
		store:     s,
		coord:     coord,
		pipeline:  pipeline,
		suggester: suggester,
		logger:    logging.OrDefault(logger),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying store.
func (s *Service) Store() store.Store {
	return s.store
}
