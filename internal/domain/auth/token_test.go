package auth

import (
	"errors"
	"testing"
	"time"

	"appraisal/internal/domain/appraisal"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Role: "RE"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	user, err := UserFromClaims(claims)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.UserID != "u1" || user.Role != appraisal.RoleRequirementEngineer {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Role: "MANAGER"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Role: "MANAGER"}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestUserFromClaimsRejectsUnknownRole(t *testing.T) {
	_, err := UserFromClaims(&Claims{UserID: "u1", Role: "ADMIN"})
	if !errors.Is(err, appraisal.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateToken(" ", Claims{UserID: "u1"}, time.Hour); err == nil {
		t.Fatal("expected missing secret error")
	}
}
