package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/repository"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

type userDirectory interface {
	FindByKey(ctx context.Context, key string) (*models.DirectoryUser, error)
}

type auditRecorder interface {
	Record(entry AuditEntry)
}

// SessionConfig defines token issuance settings.
type SessionConfig struct {
	Secret   string
	Expiry   time.Duration
	Issuer   string
	Audience []string
}

// RequestMeta carries request details recorded in the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SessionService issues and validates access tokens for directory accounts.
type SessionService struct {
	directory userDirectory
	validator *validator.Validate
	audit     auditRecorder
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(directory userDirectory, validate *validator.Validate, audit auditRecorder, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 12 * time.Hour
	}
	return &SessionService{directory: directory, validator: validate, audit: audit, logger: logger, config: config, now: time.Now}
}

// Open resolves a directory key and issues a token for it.
func (s *SessionService) Open(ctx context.Context, req models.SessionRequest, meta RequestMeta) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	user, err := s.directory.FindByKey(ctx, req.UserKey)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown user key")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}

	issuedAt := s.now().UTC()
	token, err := s.sign(user.Identity, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if s.audit != nil {
		s.audit.Record(AuditEntry{
			UserID:     user.ID,
			Action:     models.AuditActionSessionOpen,
			Resource:   "session",
			ResourceID: user.ID,
			After:      map[string]string{"role": string(user.Role)},
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		})
	}
	s.logger.Info("session opened", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return &models.SessionResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiry.Seconds()),
		User:        user.Identity,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *SessionService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not carry a usable identity")
	}
	if claims.Role == models.RoleClassCoordinator && (claims.AssignedClass == nil || !claims.AssignedClass.Valid()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "class coordinator token has no assigned class")
	}

	return claims, nil
}

func (s *SessionService) sign(identity models.Identity, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:        identity.ID,
		Role:          identity.Role,
		Email:         identity.Email,
		FullName:      identity.Name,
		AssignedClass: identity.AssignedClass,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    s.config.Issuer,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}
