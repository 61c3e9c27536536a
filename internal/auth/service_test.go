package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var pgErr = errors.New("db error")

func fastHash(t *testing.T) {
	t.Helper()
	old := hashTokenFn
	hashTokenFn = func(p []byte, _ int) ([]byte, error) {
		return bcrypt.GenerateFromPassword(p, bcrypt.MinCost)
	}
	t.Cleanup(func() { hashTokenFn = old })
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func signAssertion(t *testing.T, secret, provider, subject, name string) string {
	t.Helper()
	claims := ProviderClaims{
		Provider: provider,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign assertion: %v", err)
	}
	return token
}

func refreshJTI(t *testing.T, svc *Service, token string) string {
	t.Helper()
	claims, err := svc.parseToken(token)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	return claims.ID
}

func TestExchangeCreatesWalker(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	createdAt := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`INSERT INTO walkers`).
		WithArgs(pgxmock.AnyArg(), "kakao", "12345", "Mina").
		WillReturnRows(pgxmock.NewRows([]string{"id", "display_name", "created_at"}).AddRow("walker-1", "Mina", createdAt))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService("test-secret", "provider-secret", mock)
	walker, tokens, err := svc.Exchange(context.Background(), signAssertion(t, "provider-secret", " Kakao ", "12345", "Mina"))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if walker.ID != "walker-1" || walker.Provider != "kakao" || walker.DisplayName != "Mina" {
		t.Fatalf("unexpected walker: %+v", walker)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.TokenType != "Bearer" {
		t.Fatalf("expected tokens")
	}
	userID, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil || userID != "walker-1" {
		t.Fatalf("access token: %v %s", err, userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExchangeRejectsAssertions(t *testing.T) {
	svc := NewService("test-secret", "provider-secret", nil)

	cases := map[string]string{
		"wrong secret":     signAssertion(t, "other", "kakao", "1", "x"),
		"missing subject":  signAssertion(t, "provider-secret", "kakao", "", "x"),
		"missing provider": signAssertion(t, "provider-secret", "", "1", "x"),
		"garbage":          "not-a-token",
	}
	for name, assertion := range cases {
		if _, _, err := svc.Exchange(context.Background(), assertion); !errors.Is(err, ErrAssertionInvalid) {
			t.Fatalf("%s: expected invalid assertion, got %v", name, err)
		}
	}
}

func TestExchangeUpsertError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO walkers`).
		WithArgs(pgxmock.AnyArg(), "google", "abc", "").
		WillReturnError(pgErr)

	svc := NewService("test-secret", "provider-secret", mock)
	if _, _, err := svc.Exchange(context.Background(), signAssertion(t, "provider-secret", "google", "abc", "")); !errors.Is(err, pgErr) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	svc := NewService("test-secret", "provider-secret", mock)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	tokens, err := svc.GenerateTokens(context.Background(), "walker-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}

	jti := refreshJTI(t, svc, tokens.RefreshToken)
	hash, _ := bcrypt.GenerateFromPassword(tokenDigest(tokens.RefreshToken), bcrypt.MinCost)

	mock.ExpectQuery(`SELECT walker_id, token_hash, expires_at`).
		WithArgs(jti).
		WillReturnRows(pgxmock.NewRows([]string{"walker_id", "token_hash", "expires_at"}).AddRow("walker-1", string(hash), time.Now().Add(time.Hour)))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).
		WithArgs(jti).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	next, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateRefreshTokenRejections(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	svc := NewService("test-secret", "provider-secret", mock)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	tokens, err := svc.GenerateTokens(context.Background(), "walker-1")
	if err != nil {
		t.Fatalf("generate tokens: %v", err)
	}
	jti := refreshJTI(t, svc, tokens.RefreshToken)
	hash, _ := bcrypt.GenerateFromPassword(tokenDigest(tokens.RefreshToken), bcrypt.MinCost)
	otherHash, _ := bcrypt.GenerateFromPassword([]byte("something else"), bcrypt.MinCost)
	cols := []string{"walker_id", "token_hash", "expires_at"}

	// access tokens carry no jti
	if _, _, err := svc.ValidateRefreshToken(context.Background(), tokens.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected access token rejected, got %v", err)
	}

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("walker-1", string(hash), time.Now().Add(-time.Minute)))
	if _, _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("walker-1", string(otherHash), time.Now().Add(time.Hour)))
	if _, _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected hash mismatch rejected, got %v", err)
	}

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("walker-2", string(hash), time.Now().Add(time.Hour)))
	if _, _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected owner mismatch rejected, got %v", err)
	}

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).WillReturnError(pgErr)
	if _, _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected lookup failure rejected, got %v", err)
	}
}

func TestRefreshRevokeError(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	svc := NewService("test-secret", "provider-secret", mock)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	tokens, _ := svc.GenerateTokens(context.Background(), "walker-1")
	jti := refreshJTI(t, svc, tokens.RefreshToken)
	hash, _ := bcrypt.GenerateFromPassword(tokenDigest(tokens.RefreshToken), bcrypt.MinCost)

	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).
		WillReturnRows(pgxmock.NewRows([]string{"walker_id", "token_hash", "expires_at"}).AddRow("walker-1", string(hash), time.Now().Add(time.Hour)))
	mock.ExpectExec(`UPDATE refresh_tokens`).WithArgs(jti).WillReturnError(pgErr)

	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, pgErr) {
		t.Fatalf("expected revoke error, got %v", err)
	}
}

func TestGenerateTokensSaveRefreshError(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgErr)

	svc := NewService("test-secret", "", mock)
	if _, err := svc.GenerateTokens(context.Background(), "walker-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateTokensSignErrors(t *testing.T) {
	oldSign := signTokenFn
	defer func() { signTokenFn = oldSign }()

	signTokenFn = func(_ *Service, _, _ string, _ time.Duration) (string, error) {
		return "", pgErr
	}
	svc := NewService("test-secret", "", nil)
	if _, err := svc.GenerateTokens(context.Background(), "walker-1"); err == nil {
		t.Fatalf("expected access sign error")
	}

	call := 0
	signTokenFn = func(_ *Service, _, _ string, _ time.Duration) (string, error) {
		call++
		if call == 2 {
			return "", pgErr
		}
		return "token", nil
	}
	if _, err := svc.GenerateTokens(context.Background(), "walker-1"); err == nil {
		t.Fatalf("expected refresh sign error")
	}
}

func TestGenerateTokensHashError(t *testing.T) {
	oldHash := hashTokenFn
	hashTokenFn = func(_ []byte, _ int) ([]byte, error) {
		return nil, pgErr
	}
	defer func() { hashTokenFn = oldHash }()

	svc := NewService("test-secret", "", nil)
	if _, err := svc.GenerateTokens(context.Background(), "walker-1"); !errors.Is(err, pgErr) {
		t.Fatalf("expected hash error, got %v", err)
	}
}

func TestParseTokenInvalid(t *testing.T) {
	oldParse := parseWithClaimsFn
	parseWithClaimsFn = func(_ string, _ jwt.Claims, _ jwt.Keyfunc, _ ...jwt.ParserOption) (*jwt.Token, error) {
		return &jwt.Token{Valid: false, Claims: &Claims{}}, nil
	}
	defer func() { parseWithClaimsFn = oldParse }()

	svc := NewService("test-secret", "", nil)
	if _, err := svc.parseToken("token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateAccessTokenInvalid(t *testing.T) {
	svc := NewService("test-secret", "", nil)
	if _, err := svc.ValidateAccessToken("invalid-token"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTokenDigestFitsBcrypt(t *testing.T) {
	long := make([]byte, 500)
	if got := len(tokenDigest(string(long))); got != 64 {
		t.Fatalf("expected 64 byte digest, got %d", got)
	}
}

func TestRefreshConsumedConcurrently(t *testing.T) {
	fastHash(t)
	mock := newMock(t)
	svc := NewService("test-secret", "provider-secret", mock)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(pgxmock.AnyArg(), "walker-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	tokens, _ := svc.GenerateTokens(context.Background(), "walker-1")
	jti := refreshJTI(t, svc, tokens.RefreshToken)
	hash, _ := bcrypt.GenerateFromPassword(tokenDigest(tokens.RefreshToken), bcrypt.MinCost)

	// another request revoked the token between lookup and revoke
	mock.ExpectQuery(`FROM refresh_tokens`).WithArgs(jti).
		WillReturnRows(pgxmock.NewRows([]string{"walker_id", "token_hash", "expires_at"}).AddRow("walker-1", string(hash), time.Now().Add(time.Hour)))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = now\(\) WHERE id = \$1 AND revoked_at IS NULL`).
		WithArgs(jti).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected consumed token rejected, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no new pair should be issued: %v", err)
	}
}
