package util

import (
	"testing"
	"time"

	"school_exam_backend/internal/model"
)

const testSecret = "test-secret-for-token-round-trips"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(7, 3, model.Teacher, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}

	if claims.UserID != 7 || claims.SchoolID != 3 || claims.Role != model.Teacher {
		t.Errorf("claims = %+v, want userID 7 schoolID 3 role teacher", claims)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(7, 3, model.Student, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	if _, err := ParseJWT(token, "a-different-secret-entirely"); err == nil {
		t.Error("token signed with another secret should not parse")
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT(7, 3, model.Student, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	if _, err := ParseJWT(token, testSecret); err == nil {
		t.Error("expired token should not parse")
	}
}
