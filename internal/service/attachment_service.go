package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable indicates no storage backend is configured.
	ErrStorageUnavailable = errors.New("attachment storage not configured")
)

// allowedMimeTypes lists the sniffed content types an attachment may have. Scriptable image
// formats such as SVG are excluded.
var allowedMimeTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/zip": true,
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AttachmentService validates and stores supporting documents for complaints.
type AttachmentService interface {
	Upload(ctx context.Context, identity models.Identity, file *multipart.FileHeader) (dto.AttachmentResponse, error)
	List(ctx context.Context, identity models.Identity) ([]dto.AttachmentResponse, error)
}

type attachmentService struct {
	storage FileStorage
	repo    repository.AttachmentRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewAttachmentService constructs an attachment service. A nil storage disables uploads.
func NewAttachmentService(storage FileStorage, repo repository.AttachmentRepository, maxSizeMB int, logger zerolog.Logger) AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &attachmentService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "attachment_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/campus-grievance-api/internal/service/attachment"),
	}
}

func (s *attachmentService) Upload(ctx context.Context, identity models.Identity, file *multipart.FileHeader) (dto.AttachmentResponse, error) {
	if !access.CanSubmit(identity.Role) {
		return dto.AttachmentResponse{}, fmt.Errorf("upload attachment as %s: %w", identity.Role, ErrForbidden)
	}

	ctx, span := s.tracer.Start(ctx, "attachments.store")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.owner_id", identity.UserID),
	)

	start := time.Now()
	defer func() {
		observability.AttachmentLatency().Observe(time.Since(start).Seconds())
	}()

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage unavailable")
		return dto.AttachmentResponse{}, ErrStorageUnavailable
	}

	if file == nil {
		span.RecordError(ErrUploadMissing)
		span.SetStatus(codes.Error, "validation failed")
		return dto.AttachmentResponse{}, ErrUploadMissing
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		return dto.AttachmentResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.AttachmentResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.AttachmentResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.AttachmentResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	fileType := detectMime(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !allowedMimeTypes[fileType] {
		return dto.AttachmentResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return dto.AttachmentResponse{}, s.reject(span, "scan", err)
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename)
	span.SetAttributes(
		attribute.String("upload.sanitized_name", sanitizedName),
		attribute.Int64("upload.size_bytes", int64(buf.Len())),
	)

	url, err := s.storage.Upload(ctx, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.AttachmentRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.AttachmentResponse{}, err
	}

	record := models.Attachment{
		OwnerID:   identity.UserID,
		FileName:  sanitizedName,
		URL:       url,
		MimeType:  fileType,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(checksum[:]),
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.AttachmentResponse{}, err
	}

	observability.AttachmentUploads().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")

	return newAttachmentResponse(record), nil
}

func (s *attachmentService) List(ctx context.Context, identity models.Identity) ([]dto.AttachmentResponse, error) {
	records, err := s.repo.ListByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AttachmentResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, newAttachmentResponse(record))
	}
	return responses, nil
}

func (s *attachmentService) reject(span trace.Span, reason string, err error) error {
	observability.AttachmentRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason+" rejected")
	return err
}

func (s *attachmentService) scan(payload []byte, mime string) error {
	if mime == "application/zip" {
		reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
		if err != nil {
			return ErrUploadScanFailed
		}
		var totalUncompressed uint64
		for _, f := range reader.File {
			totalUncompressed += f.UncompressedSize64
			if totalUncompressed > uint64(s.maxSize*20) {
				return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
			}
		}
	}
	return nil
}

func newAttachmentResponse(record models.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        record.ID,
		URL:       record.URL,
		FileName:  record.FileName,
		MimeType:  record.MimeType,
		SizeBytes: record.SizeBytes,
		Checksum:  record.Checksum,
		CreatedAt: record.CreatedAt,
	}
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("attachment-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

// detectMime sniffs payload and returns its bare content type, with zip aliases folded.
func detectMime(payload []byte) string {
	detected, _, _ := strings.Cut(mimetype.Detect(payload).String(), ";")
	detected = strings.ToLower(strings.TrimSpace(detected))
	if detected == "application/x-zip-compressed" {
		return "application/zip"
	}
	return detected
}
