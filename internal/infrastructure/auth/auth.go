package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

const (
	// SessionCookie carries the session token on same-site requests from the hosted sign-in flow.
	SessionCookie = "__session"
	// DevUserHeader names the caller when authentication is disabled.
	DevUserHeader = "X-User-ID"

	principalKey = "auth_principal"
)

var defaultMethods = []string{"RS256", "RS384", "RS512", "ES256"}

// Principal is the authenticated caller.
type Principal struct {
	UserID    string
	SessionID string
	Issuer    string
}

type principalContextKey struct{}

// WithPrincipal stores the principal on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Validator validates session JWTs against the provider's JWKS.
type Validator struct {
	cfg     *config.Config
	log     zerolog.Logger
	jwks    *keyfunc.JWKS
	keyfunc jwt.Keyfunc
	methods []string
}

// NewValidator fetches the JWKS when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		log.Warn().Msg("authentication disabled; trusting " + DevUserHeader + " header")
		return &Validator{cfg: cfg, log: log}, nil
	}

	refresh := cfg.AuthJWKSRefresh
	if refresh <= 0 {
		refresh = time.Hour
	}
	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   refresh,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:     cfg,
		log:     log,
		jwks:    jwks,
		keyfunc: jwks.Keyfunc,
		methods: defaultMethods,
	}, nil
}

// NewValidatorWithKeyfunc builds an enabled validator around a fixed key source.
func NewValidatorWithKeyfunc(cfg *config.Config, log zerolog.Logger, kf jwt.Keyfunc, methods ...string) *Validator {
	if len(methods) == 0 {
		methods = defaultMethods
	}
	return &Validator{
		cfg:     cfg,
		log:     log.With().Str("component", "auth").Logger(),
		keyfunc: kf,
		methods: methods,
	}
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.keyfunc != nil
}

// Authenticate resolves the caller of r. Every failure is an UNAUTHORIZED error.
func (v *Validator) Authenticate(r *http.Request) (Principal, error) {
	ctx := r.Context()
	if !v.cfg.AuthEnabled {
		userID := strings.TrimSpace(r.Header.Get(DevUserHeader))
		if userID == "" {
			return Principal{}, unauthorized(ctx, "missing "+DevUserHeader+" header", nil)
		}
		return Principal{UserID: userID}, nil
	}

	tokenString := credential(r)
	if tokenString == "" {
		return Principal{}, unauthorized(ctx, "missing session token", nil)
	}
	return v.validate(ctx, tokenString)
}

func (v *Validator) validate(ctx context.Context, tokenString string) (Principal, error) {
	if v.keyfunc == nil {
		return Principal{}, unauthorized(ctx, "jwks not loaded", nil)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithLeeway(v.cfg.AuthClockSkew),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(v.cfg.AuthIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience := strings.TrimSpace(v.cfg.AuthAudience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, opts...)
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return Principal{}, unauthorized(ctx, "invalid token", err)
	}

	if len(v.cfg.AuthAuthorizedParties) > 0 {
		if azp, ok := claims["azp"].(string); ok && azp != "" && !contains(v.cfg.AuthAuthorizedParties, azp) {
			return Principal{}, unauthorized(ctx, "invalid authorized party", nil)
		}
	}

	sub, _ := claims.GetSubject()
	if strings.TrimSpace(sub) == "" {
		return Principal{}, unauthorized(ctx, "token has no subject", nil)
	}
	issuer, _ := claims.GetIssuer()
	sid, _ := claims["sid"].(string)

	return Principal{UserID: sub, SessionID: sid, Issuer: issuer}, nil
}

// Middleware rejects unauthenticated requests before any handler runs and stores the principal
// on both the gin context and the request context.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := v.Authenticate(c.Request)
		if err != nil {
			v.log.Debug().Err(err).Str("path", c.FullPath()).Msg("request rejected")
			c.String(http.StatusUnauthorized, "Unauthenticated!")
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// PrincipalFrom returns the principal the middleware attached to c.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	if value, ok := c.Get(principalKey); ok {
		if p, ok := value.(Principal); ok {
			return p, true
		}
	}
	return PrincipalFromContext(c.Request.Context())
}

func credential(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func unauthorized(ctx context.Context, message string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized,
		message, err, "d1e2f3a4-b5c6-4138-9dae-bfc0d1e2f3a4")
}
