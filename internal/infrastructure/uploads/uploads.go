package uploads

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/upload"
)

// NewIssuer builds the issuer selected by UPLOAD_PROVIDER.
func NewIssuer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (upload.Issuer, error) {
	switch cfg.UploadProvider {
	case config.UploadProviderImageKit:
		return NewImageKitIssuer(cfg), nil
	case config.UploadProviderS3:
		return NewS3Issuer(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown upload provider %q", cfg.UploadProvider)
	}
}
