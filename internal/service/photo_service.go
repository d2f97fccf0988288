package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/observability"
)

var (
	// ErrPhotoRequired indicates the multipart request carried no file.
	ErrPhotoRequired = errors.New("photo file is required")
	// ErrPhotoTooLarge indicates the payload exceeded the configured limit.
	ErrPhotoTooLarge = errors.New("photo exceeds maximum allowed size")
	// ErrPhotoTypeNotAllowed indicates the content is not a supported image.
	ErrPhotoTypeNotAllowed = errors.New("photo must be a jpeg, png, gif or webp image")
)

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// PhotoService validates and stores student photos.
type PhotoService interface {
	Upload(ctx context.Context, studentID string, file *multipart.FileHeader) (dto.StudentResponse, error)
	Remove(ctx context.Context, studentID string) (dto.StudentResponse, error)
}

type photoService struct {
	students    StudentService
	storage     FileStorage
	storageName string
	maxSize     int64
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewPhotoService constructs the photo service. storageName labels metrics.
func NewPhotoService(students StudentService, storage FileStorage, storageName string, maxSizeMB int, logger zerolog.Logger) PhotoService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	if storage == nil {
		storage = DataURIStorage{}
		storageName = "inline"
	}
	return &photoService{
		students:    students,
		storage:     storage,
		storageName: storageName,
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		logger:      logger.With().Str("component", "photo_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/trombinoscope-api/internal/service/photo"),
	}
}

func (s *photoService) Upload(ctx context.Context, studentID string, file *multipart.FileHeader) (dto.StudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "photo.upload", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.String("photo.storage", s.storageName),
		attribute.Int64("photo.max_bytes", s.maxSize),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.PhotoLatency().Observe(time.Since(start).Seconds())
	}()

	if _, err := s.students.Get(ctx, studentID); err != nil {
		span.RecordError(err)
		return dto.StudentResponse{}, err
	}

	payload, err := s.read(file)
	if err != nil {
		s.reject(span, err)
		return dto.StudentResponse{}, err
	}

	mime := mimetype.Detect(payload)
	span.SetAttributes(attribute.String("photo.detected_mime", mime.String()))
	if !mimetype.EqualsAny(mime.String(), allowedPhotoTypes...) {
		s.reject(span, ErrPhotoTypeNotAllowed)
		return dto.StudentResponse{}, ErrPhotoTypeNotAllowed
	}

	name := photoFileName(studentID, mime.Extension())
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		observability.PhotoUploads().WithLabelValues(s.storageName, "storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.StudentResponse{}, fmt.Errorf("failed to store photo: %w", err)
	}

	student, err := s.students.SetPhoto(ctx, studentID, url)
	if err != nil {
		span.RecordError(err)
		return dto.StudentResponse{}, err
	}

	observability.PhotoUploads().WithLabelValues(s.storageName, "stored").Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("student_id", studentID).Int("size_bytes", len(payload)).Msg("photo stored")
	return student, nil
}

func (s *photoService) Remove(ctx context.Context, studentID string) (dto.StudentResponse, error) {
	return s.students.SetPhoto(ctx, studentID, "")
}

func (s *photoService) read(file *multipart.FileHeader) ([]byte, error) {
	if file == nil {
		return nil, ErrPhotoRequired
	}
	if file.Size > s.maxSize {
		return nil, ErrPhotoTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return nil, ErrPhotoTooLarge
	}
	if buf.Len() == 0 {
		return nil, ErrPhotoRequired
	}
	return buf.Bytes(), nil
}

func (s *photoService) reject(span trace.Span, err error) {
	outcome := "invalid"
	switch {
	case errors.Is(err, ErrPhotoTooLarge):
		outcome = "size"
	case errors.Is(err, ErrPhotoTypeNotAllowed):
		outcome = "type"
	}
	observability.PhotoUploads().WithLabelValues(s.storageName, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}

func photoFileName(studentID, ext string) string {
	base := strings.ToLower(strings.TrimSpace(studentID))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "student"
	}
	return base + ext
}
