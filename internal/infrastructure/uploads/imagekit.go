package uploads

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/upload"
)

var errImageKitNotConfigured = errors.New("IMAGE_KIT_PRIVATE_KEY is not set")

// ImageKitIssuer produces the token/expire/signature triple the ImageKit client SDK sends with a direct upload.
type ImageKitIssuer struct {
	privateKey string
	ttl        time.Duration
	now        func() time.Time
}

func NewImageKitIssuer(cfg *config.Config) *ImageKitIssuer {
	return &ImageKitIssuer{
		privateKey: strings.TrimSpace(cfg.ImageKitPrivateKey),
		ttl:        cfg.UploadTokenTTL,
		now:        time.Now,
	}
}

func (i *ImageKitIssuer) Provider() string {
	return config.UploadProviderImageKit
}

// Issue signs token+expire with HMAC-SHA1 under the private key.
func (i *ImageKitIssuer) Issue(context.Context) (upload.Params, error) {
	if i.privateKey == "" {
		return nil, errImageKitNotConfigured
	}
	token := uuid.NewString()
	expire := i.now().Add(i.ttl).Unix()
	return upload.Params{
		"token":     token,
		"expire":    expire,
		"signature": Sign(i.privateKey, token, expire),
	}, nil
}

// Sign returns hex(HMAC-SHA1(privateKey, token + expire)).
func Sign(privateKey, token string, expire int64) string {
	mac := hmac.New(sha1.New, []byte(privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
