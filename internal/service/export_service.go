package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/export"
	"github.com/noah-isme/trombinoscope-api/internal/models"
	"github.com/noah-isme/trombinoscope-api/internal/observability"
	"github.com/noah-isme/trombinoscope-api/internal/repository"
)

// ExportService renders downloadable roster documents.
type ExportService interface {
	Workbook(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error)
	Report(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error)
	PhotoSheet(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error)
}

type exportService struct {
	store   repository.Store
	fetcher export.PhotoFetcher
	logger  zerolog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewExportService constructs the export service. fetcher may be nil, in
// which case remote photos render as initials.
func NewExportService(store repository.Store, fetcher export.PhotoFetcher, logger zerolog.Logger) ExportService {
	return &exportService{
		store:   store,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "export_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/trombinoscope-api/internal/service/export"),
		now:     time.Now,
	}
}

func (s *exportService) Workbook(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error) {
	return s.render(ctx, dto.ExportFormatXLSX, opts, dto.DefaultWorkbookName, export.ContentTypeXLSX,
		func(_ context.Context, roster models.Roster) ([]byte, error) {
			return export.Workbook(roster, opts)
		})
}

func (s *exportService) Report(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error) {
	return s.render(ctx, dto.ExportFormatPDF, opts, dto.DefaultReportName, export.ContentTypePDF,
		func(_ context.Context, roster models.Roster) ([]byte, error) {
			return export.Report(roster, opts, s.now())
		})
}

func (s *exportService) PhotoSheet(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error) {
	return s.render(ctx, dto.ExportFormatPhotos, opts, dto.DefaultPhotoSheetName, export.ContentTypePDF,
		func(ctx context.Context, roster models.Roster) ([]byte, error) {
			return export.PhotoSheet(ctx, roster.Students, s.fetcher, s.now())
		})
}

type renderFunc func(ctx context.Context, roster models.Roster) ([]byte, error)

func (s *exportService) render(ctx context.Context, format string, opts dto.ExportOptions, fallback, contentType string, fn renderFunc) (dto.ExportResult, error) {
	ctx, span := s.tracer.Start(ctx, "export."+format, trace.WithAttributes(
		attribute.Bool("export.students", opts.IncludeStudents),
		attribute.Bool("export.projects", opts.IncludeProjects),
		attribute.Bool("export.grades", opts.IncludeGrades),
	))
	defer span.End()

	roster, err := repository.LoadRoster(ctx, s.store)
	if err != nil {
		observability.Exports().WithLabelValues(format, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return dto.ExportResult{}, fmt.Errorf("failed to load roster: %w", err)
	}

	content, err := fn(ctx, roster)
	if err != nil {
		observability.Exports().WithLabelValues(format, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return dto.ExportResult{}, fmt.Errorf("failed to render %s export: %w", format, err)
	}

	observability.Exports().WithLabelValues(format, "ok").Inc()
	observability.ExportSize().WithLabelValues(format).Observe(float64(len(content)))
	span.SetAttributes(attribute.Int("export.bytes", len(content)))

	s.logger.Info().
		Str("format", format).
		Int("students", len(roster.Students)).
		Int("projects", len(roster.Projects)).
		Int("bytes", len(content)).
		Msg("export generated")

	return dto.ExportResult{
		Filename:    opts.FilenameOr(fallback),
		ContentType: contentType,
		Content:     content,
	}, nil
}
