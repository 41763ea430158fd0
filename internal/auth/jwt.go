package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// ErrInvalidSigningMethod is returned for tokens not signed with HMAC.
var ErrInvalidSigningMethod = errors.New("invalid signing method")

// CustomClaims are the claims of an access or refresh token. Accounts live
// with an external identity provider, so the claims are the whole identity.
type CustomClaims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTValidator validates tokens. The middleware depends on this rather than
// on JWTService so tests can substitute it.
type JWTValidator interface {
	ValidateToken(tokenString string, expectedType string) (*CustomClaims, error)
}

// JWTService signs and validates HS256 tokens.
type JWTService struct {
	Config *config.JWTSettings
}

// NewJWTService creates a new JWTService instance
func NewJWTService(config *config.JWTSettings) *JWTService {
	return &JWTService{Config: config}
}

// GetConfig returns the JWT settings, falling back to defaults when unset
func (s *JWTService) GetConfig() *config.JWTSettings {
	if s.Config != nil {
		return s.Config
	}
	return &config.JWTSettings{
		Expiry:        constants.DefaultJWTExpiry,
		RefreshExpiry: constants.DefaultJWTRefreshExpiry,
		Issuer:        constants.DefaultJWTIssuer,
	}
}

// GenerateAccessToken signs an access token for a user and returns it with its JWT ID.
func (s *JWTService) GenerateAccessToken(userID int64, username string) (string, string, error) {
	return s.sign(userID, username, constants.TokenTypeAccess, s.GetConfig().Expiry)
}

// GenerateRefreshToken signs a refresh token. The API itself only accepts
// access tokens.
func (s *JWTService) GenerateRefreshToken(userID int64, username string) (string, string, error) {
	return s.sign(userID, username, constants.TokenTypeRefresh, s.GetConfig().RefreshExpiry)
}

func (s *JWTService) sign(userID int64, username, tokenType string, ttl time.Duration) (string, string, error) {
	cfg := s.GetConfig()
	now := time.Now()
	id := uuid.New().String()

	claims := CustomClaims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, id, nil
}

// ValidateToken checks the signature, lifetime and type of a token and
// returns its claims. Expired tokens yield an expired-token AppError, every
// other failure an invalid-token AppError.
func (s *JWTService) ValidateToken(tokenString string, expectedType string) (*CustomClaims, error) {
	secret := []byte(s.GetConfig().Secret)

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return secret, nil
	})

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, utils.NewExpiredTokenError()
	case err != nil, !token.Valid, claims.TokenType != expectedType:
		return nil, utils.NewInvalidTokenError()
	}
	return claims, nil
}
