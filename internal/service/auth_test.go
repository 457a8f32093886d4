package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hairkim/Fitness-App-sub000/internal/config"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// ===== MOCK REPOSITORY =====

// mockRefreshTokenRepository stores tokens in memory keyed by hash.
type mockRefreshTokenRepository struct {
	byHash map[string]*model.RefreshToken

	revokeAllCalls []int64
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{byHash: make(map[string]*model.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	token.CreatedAt = time.Now()
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	token, ok := m.byHash[tokenHash]
	if !ok {
		return nil, model.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	for _, token := range m.byHash {
		if token.ID == id {
			now := time.Now()
			token.RevokedAt = &now
			token.ReplacedBy = replacedBy
			return nil
		}
	}
	return model.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	m.revokeAllCalls = append(m.revokeAllCalls, userID)
	now := time.Now()
	for _, token := range m.byHash {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func authTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 2592000,
	}
}

// ===== TOKEN ISSUANCE TESTS =====

func TestAuthService_GenerateTokenPair(t *testing.T) {
	// ARRANGE
	repo := newMockRefreshTokenRepository()
	svc := NewAuthService(repo, authTestConfig())

	// ACT
	pair, err := svc.GenerateTokenPair(context.Background(), 7, "ios-app", "203.0.113.5")

	// ASSERT
	if err != nil {
		t.Fatalf("GenerateTokenPair returned error: %v", err)
	}
	if pair.ExpiresIn != 900 {
		t.Errorf("expires_in = %d, want 900", pair.ExpiresIn)
	}

	// The access token must carry the user id under HS256.
	parsed, err := jwt.Parse(pair.AccessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token does not validate: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if int64(claims["user_id"].(float64)) != 7 {
		t.Errorf("user_id claim = %v, want 7", claims["user_id"])
	}

	// Only the hash is persisted, never the raw refresh token.
	if len(repo.byHash) != 1 {
		t.Fatalf("stored %d refresh tokens, want 1", len(repo.byHash))
	}
	for hash, stored := range repo.byHash {
		if hash == pair.RefreshToken {
			t.Error("raw refresh token was stored as its own hash")
		}
		if stored.UserID != 7 {
			t.Errorf("stored user = %d, want 7", stored.UserID)
		}
		if stored.DeviceInfo == nil || *stored.DeviceInfo != "ios-app" {
			t.Errorf("device info = %v, want ios-app", stored.DeviceInfo)
		}
		if !stored.ExpiresAt.After(time.Now()) {
			t.Error("stored refresh token is already expired")
		}
	}
}

// ===== ROTATION TESTS =====

func TestAuthService_RefreshTokens_Rotates(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := NewAuthService(repo, authTestConfig())
	ctx := context.Background()

	original, err := svc.GenerateTokenPair(ctx, 7, "", "")
	if err != nil {
		t.Fatalf("seed pair: %v", err)
	}

	rotated, userID, err := svc.RefreshTokens(ctx, original.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("RefreshTokens returned error: %v", err)
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
	if rotated.RefreshToken == original.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The old token is revoked and linked to its replacement.
	old, err := repo.FindByTokenHash(ctx, svc.hashToken(original.RefreshToken))
	if err != nil {
		t.Fatalf("old token lookup: %v", err)
	}
	if !old.IsRevoked() {
		t.Error("old token still valid after rotation")
	}
	if old.ReplacedBy == nil {
		t.Error("old token not linked to its replacement")
	}
}

func TestAuthService_RefreshTokens_UnknownToken(t *testing.T) {
	svc := NewAuthService(newMockRefreshTokenRepository(), authTestConfig())

	_, _, err := svc.RefreshTokens(context.Background(), "never-issued", "", "")
	if !errors.Is(err, model.ErrRefreshTokenNotFound) {
		t.Errorf("error = %v, want ErrRefreshTokenNotFound", err)
	}
}

func TestAuthService_RefreshTokens_ReuseRevokesFamily(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := NewAuthService(repo, authTestConfig())
	ctx := context.Background()

	original, err := svc.GenerateTokenPair(ctx, 7, "", "")
	if err != nil {
		t.Fatalf("seed pair: %v", err)
	}
	rotated, _, err := svc.RefreshTokens(ctx, original.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("first rotation: %v", err)
	}

	// Replaying the already-rotated token is treated as theft.
	_, _, err = svc.RefreshTokens(ctx, original.RefreshToken, "", "")
	if !errors.Is(err, model.ErrRefreshTokenReused) {
		t.Fatalf("error = %v, want ErrRefreshTokenReused", err)
	}
	if len(repo.revokeAllCalls) != 1 || repo.revokeAllCalls[0] != 7 {
		t.Errorf("revokeAll calls = %v, want the whole family of user 7", repo.revokeAllCalls)
	}

	// The rotated token went down with the family.
	current, err := repo.FindByTokenHash(ctx, svc.hashToken(rotated.RefreshToken))
	if err != nil {
		t.Fatalf("rotated token lookup: %v", err)
	}
	if !current.IsRevoked() {
		t.Error("rotated token survived the family revocation")
	}
}

func TestAuthService_RefreshTokens_Expired(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := NewAuthService(repo, authTestConfig())
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(ctx, 7, "", "")
	if err != nil {
		t.Fatalf("seed pair: %v", err)
	}
	stored := repo.byHash[svc.hashToken(pair.RefreshToken)]
	stored.ExpiresAt = time.Now().Add(-time.Hour)

	_, _, err = svc.RefreshTokens(ctx, pair.RefreshToken, "", "")
	if !errors.Is(err, model.ErrRefreshTokenExpired) {
		t.Errorf("error = %v, want ErrRefreshTokenExpired", err)
	}
}

// ===== LOGOUT TESTS =====

func TestAuthService_RevokeRefreshToken(t *testing.T) {
	repo := newMockRefreshTokenRepository()
	svc := NewAuthService(repo, authTestConfig())
	ctx := context.Background()

	pair, err := svc.GenerateTokenPair(ctx, 7, "", "")
	if err != nil {
		t.Fatalf("seed pair: %v", err)
	}

	if err := svc.RevokeRefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("RevokeRefreshToken returned error: %v", err)
	}

	stored := repo.byHash[svc.hashToken(pair.RefreshToken)]
	if !stored.IsRevoked() {
		t.Error("token still valid after logout")
	}
}
