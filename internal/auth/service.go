package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/EJ-pro/Walky/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrAssertionInvalid = errors.New("provider assertion invalid")
	ErrRefreshInvalid   = errors.New("refresh token invalid")
)

type Service struct {
	secret         []byte
	providerSecret []byte
	db             db.Querier
}

// Claims is carried by both access and refresh tokens. Refresh tokens also set ID (jti).
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ProviderClaims is the assertion minted by the identity broker after a social login.
type ProviderClaims struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

var (
	signTokenFn       = (*Service).signToken
	hashTokenFn       = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

func NewService(secret, providerSecret string, db db.Querier) *Service {
	return &Service{
		secret:         []byte(secret),
		providerSecret: []byte(providerSecret),
		db:             db,
	}
}

// Exchange trades a provider assertion for Walky tokens, creating the walker on first sight.
func (s *Service) Exchange(ctx context.Context, assertion string) (Walker, TokenResponse, error) {
	claims := &ProviderClaims{}
	parsed, err := parseWithClaimsFn(assertion, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.providerSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Walker{}, TokenResponse{}, ErrAssertionInvalid
	}
	provider := strings.ToLower(strings.TrimSpace(claims.Provider))
	if provider == "" || claims.Subject == "" {
		return Walker{}, TokenResponse{}, ErrAssertionInvalid
	}

	walker := Walker{Provider: provider, Subject: claims.Subject}
	row := s.db.QueryRow(ctx, `
		INSERT INTO walkers (id, provider, subject, display_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (provider, subject) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, created_at
	`, uuid.NewString(), provider, claims.Subject, claims.Name)
	if err := row.Scan(&walker.ID, &walker.DisplayName, &walker.CreatedAt); err != nil {
		return Walker{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, walker.ID)
	if err != nil {
		return Walker{}, TokenResponse{}, err
	}
	return walker, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, "", accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	jti := uuid.NewString()
	refresh, err := signTokenFn(s, userID, jti, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, jti, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// Refresh validates a refresh token, revokes it and issues a new pair.
func (s *Service) Refresh(ctx context.Context, token string) (TokenResponse, error) {
	userID, jti, err := s.ValidateRefreshToken(ctx, token)
	if err != nil {
		return TokenResponse{}, err
	}
	// only one caller may consume a refresh token
	tag, err := s.db.Exec(ctx, `UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, jti)
	if err != nil {
		return TokenResponse{}, err
	}
	if tag.RowsAffected() == 0 {
		return TokenResponse{}, ErrRefreshInvalid
	}
	return s.GenerateTokens(ctx, userID)
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, string, error) {
	claims, err := s.parseToken(token)
	if err != nil || claims.ID == "" {
		return "", "", ErrRefreshInvalid
	}

	row := s.db.QueryRow(ctx, `
		SELECT walker_id, token_hash, expires_at
		FROM refresh_tokens
		WHERE id = $1 AND revoked_at IS NULL
	`, claims.ID)
	var (
		walkerID, hash string
		expiresAt      time.Time
	)
	if err := row.Scan(&walkerID, &hash, &expiresAt); err != nil {
		return "", "", ErrRefreshInvalid
	}
	if walkerID != claims.UserID || time.Now().After(expiresAt) {
		return "", "", ErrRefreshInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), tokenDigest(token)); err != nil {
		return "", "", ErrRefreshInvalid
	}
	return claims.UserID, claims.ID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) signToken(userID, jti string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, jti, token, userID string, ttl time.Duration) error {
	hash, err := hashTokenFn(tokenDigest(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, walker_id, token_hash, expires_at)
		VALUES ($1,$2,$3,$4)
	`, jti, userID, string(hash), time.Now().Add(ttl))
	return err
}

// tokenDigest keeps the bcrypt input under its 72 byte limit.
func tokenDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(hex.EncodeToString(sum[:]))
}
