package upload

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// Params is the issuer-defined parameter set a client needs for a direct upload. It is passed through as-is.
type Params map[string]any

// Issuer produces short-lived signed parameters for a direct client upload to the media CDN.
type Issuer interface {
	Issue(ctx context.Context) (Params, error)
	Provider() string
}

// Service hands out upload parameters.
type Service struct {
	issuer Issuer
	log    zerolog.Logger
}

func NewService(issuer Issuer, log zerolog.Logger) *Service {
	return &Service{
		issuer: issuer,
		log:    log.With().Str("component", "upload-service").Logger(),
	}
}

// AuthParams returns the issuer's parameters verbatim, or an EXTERNAL error when the issuer fails.
func (s *Service) AuthParams(ctx context.Context) (Params, error) {
	params, err := s.issuer.Issue(ctx)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"Error issuing upload parameters!", err, "e7f1c3a9-24b6-4d8e-9a05-6b3c2d1e0f98")
	}
	return params, nil
}

// Provider names the configured issuer.
func (s *Service) Provider() string {
	return s.issuer.Provider()
}
