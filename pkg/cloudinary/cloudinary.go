package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// DefaultFolder is used when no upload folder is configured.
const DefaultFolder = "grievance/attachments"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Storage stores complaint attachments in Cloudinary.
type Storage struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary storage instance.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}

	return &Storage{
		client: cld,
		folder: folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the file to Cloudinary and returns its secure URL.
func (s *Storage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     buildPublicID(name, s.now()),
		ResourceType: "auto",
		Tags:         []string{"complaint-attachment"},
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected attachment: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("attachment uploaded to cloudinary")

	return result.SecureURL, nil
}

func buildPublicID(name string, at time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "attachment"
	}

	return fmt.Sprintf("%s-%d", base, at.UnixNano())
}
