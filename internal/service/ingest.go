package service

import (
	"context"
	"fmt"
	"io"

	"fjacquet/teamkasse/internal/ingest"
	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/source"
)

// RunIngestion imports one legacy export. opts override the service
// defaults field by field.
func (s *Service) RunIngestion(ctx context.Context, in io.Reader, schema ingest.Schema, opts ingest.Options) (*ingest.Result, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("ingestion is not configured")
	}
	return s.pipeline.Run(ctx, in, schema, s.ingestOptions(opts))
}

// ImportURI opens a local file or gs:// object and imports it.
func (s *Service) ImportURI(ctx context.Context, uri string, schema ingest.Schema, opts ingest.Options) (*ingest.Result, error) {
	rc, err := source.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close import source",
				logging.F(logging.FieldInputFile, uri))
		}
	}()
	if opts.Source == "" {
		opts.Source = uri
	}
	return s.RunIngestion(ctx, rc, schema, opts)
}

func (s *Service) ingestOptions(o ingest.Options) ingest.Options {
	d := s.ingest
	if o.Now.IsZero() {
		o.Now = d.Now
	}
	if o.Progress == nil {
		o.Progress = d.Progress
	}
	if o.StaleDueMonths <= 0 {
		o.StaleDueMonths = d.StaleDueMonths
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Source == "" {
		o.Source = d.Source
	}
	return o
}
