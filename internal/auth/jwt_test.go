package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/najdeno/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tokens := NewTokens("test-secret-key")

	token, err := tokens.Generate(1, "desk", model.RoleStaff)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 1 || claims.Username != "desk" || claims.Role != model.RoleStaff {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.Issuer != Issuer || claims.ID == "" {
		t.Errorf("expected issuer and jti, got %q %q", claims.Issuer, claims.ID)
	}
}

func TestTokensAreUnique(t *testing.T) {
	tokens := NewTokens("s")
	a, _ := tokens.Generate(1, "a", model.RoleStudent)
	b, _ := tokens.Generate(1, "a", model.RoleStudent)
	ca, _ := tokens.Validate(a)
	cb, _ := tokens.Validate(b)
	if ca.ID == cb.ID {
		t.Error("expected distinct JTIs")
	}
}

func TestValidateRejects(t *testing.T) {
	tokens := NewTokens("secret1")
	good, _ := tokens.Generate(1, "admin", model.RoleAdmin)

	otherIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret1"))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", Issuer: Issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "secret2", good},
		{"garbage", "secret1", "not-a-token"},
		{"other issuer", "secret1", otherIssuer},
		{"none algorithm", "secret1", noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokens(tt.secret).Validate(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens("test")
	tokens.now = func() time.Time { return issued }

	token, _ := tokens.Generate(1, "test", model.RoleStudent)
	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(issued.Add(TokenExpiry)) {
		t.Errorf("expected expiry %v, got %v", issued.Add(TokenExpiry), claims.ExpiresAt.Time)
	}

	tokens.now = func() time.Time { return issued.Add(TokenExpiry + time.Minute) }
	if _, err := tokens.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}
