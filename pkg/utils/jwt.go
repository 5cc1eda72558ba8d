package utils

import (
	"errors"
	"fmt"
	"time"

	"arena-breakout-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	// sessionIssuer 会话令牌签发者
	sessionIssuer = "arena-breakout"
)

// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa.
var ErrWrongTokenType = errors.New("wrong token type")

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// JWTService JWT服务
type JWTService struct {
	secretKey []byte
	now       func() time.Time
}

// NewJWTService 创建JWT服务
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (j *JWTService) sign(userID, email, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	expiry := now.Add(ttl)
	claims := &models.TokenClaims{
		Email: email,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}
	return token, expiry, nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (j *JWTService) GenerateTokenPair(userID, email string) (*TokenPair, error) {
	// 访问令牌（15分钟有效期）
	access, expiry, err := j.sign(userID, email, models.TokenTypeAccess, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	// 刷新令牌（7天有效期）
	refresh, _, err := j.sign(userID, email, models.TokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiry.Unix()}, nil
}

// GenerateAccessToken 生成访问令牌
func (j *JWTService) GenerateAccessToken(userID, email string) (string, int64, error) {
	token, expiry, err := j.sign(userID, email, models.TokenTypeAccess, accessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return token, expiry.Unix(), nil
}

// ValidateToken 验证令牌
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		// 验证签名方法
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func (j *JWTService) validateType(tokenString, tokenType string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongTokenType, tokenType, claims.Type)
	}
	return claims, nil
}

// ValidateAccessToken 验证访问令牌
func (j *JWTService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, models.TokenTypeAccess)
}

// ValidateRefreshToken 验证刷新令牌
func (j *JWTService) ValidateRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return j.validateType(tokenString, models.TokenTypeRefresh)
}

// RefreshAccessToken 使用刷新令牌生成新的访问令牌
func (j *JWTService) RefreshAccessToken(refreshToken string) (string, int64, error) {
	claims, err := j.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", 0, fmt.Errorf("invalid refresh token: %w", err)
	}
	return j.GenerateAccessToken(claims.Subject, claims.Email)
}
