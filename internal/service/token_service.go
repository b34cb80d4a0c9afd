package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// TokenConfig holds the HS256 signing parameters.
type TokenConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// TokenRequest describes the identity a token is minted for.
type TokenRequest struct {
	UserID         string          `validate:"required"`
	Role           models.UserRole `validate:"required,oneof=SUPERADMIN ADMIN VOLUNTEER"`
	Email          string          `validate:"omitempty,email"`
	OrganizationID string
	VolunteerID    string `validate:"required_if=Role VOLUNTEER"`
}

// TokenService validates bearer tokens and mints them for operators. Password based
// login lives outside this API.
type TokenService struct {
	cfg       TokenConfig
	validator *validator.Validate
}

// NewTokenService constructs a TokenService.
func NewTokenService(cfg TokenConfig, validate *validator.Validate) *TokenService {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = 24 * time.Hour
	}
	return &TokenService{cfg: cfg, validator: validate}
}

// Issue signs a token for req.
func (s *TokenService) Issue(req TokenRequest) (string, time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", time.Time{}, validationError(err, "invalid token request")
	}
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.cfg.Expiration)
	claims := &models.JWTClaims{
		UserID:         req.UserID,
		Role:           req.Role,
		Email:          req.Email,
		OrganizationID: req.OrganizationID,
		VolunteerID:    req.VolunteerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   req.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Internal(err, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role == models.RoleVolunteer && claims.VolunteerID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "volunteer token without volunteer_id")
	}
	return claims, nil
}
