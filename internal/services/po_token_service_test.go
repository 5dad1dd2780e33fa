package services

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPOTokenRoundtrip(t *testing.T) {
	svc := NewPOTokenService("test-secret", time.Hour)
	poID := "7b9c2b1e-0000-4000-8000-000000000001"

	token := svc.Generate(poID)
	got, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("валидный токен отклонён: %v", err)
	}
	if got != poID {
		t.Errorf("получили poID %s, ожидали %s", got, poID)
	}
}

func TestPOTokenExpired(t *testing.T) {
	svc := NewPOTokenService("test-secret", -time.Minute)

	token := svc.Generate("po-1")
	if _, err := svc.Validate(token); !errors.Is(err, ErrBadRequest) {
		t.Errorf("просроченный токен должен давать ErrBadRequest, получили %v", err)
	}
}

func TestPOTokenTampered(t *testing.T) {
	svc := NewPOTokenService("test-secret", time.Hour)

	token := svc.Generate("po-1")
	raw, _ := base64.StdEncoding.DecodeString(token)
	tampered := base64.StdEncoding.EncodeToString([]byte(strings.Replace(string(raw), "po-1", "po-2", 1)))

	if _, err := svc.Validate(tampered); !errors.Is(err, ErrBadRequest) {
		t.Errorf("подменённый токен должен давать ErrBadRequest, получили %v", err)
	}
}

func TestPOTokenWrongSecret(t *testing.T) {
	issuer := NewPOTokenService("secret-a", time.Hour)
	verifier := NewPOTokenService("secret-b", time.Hour)

	token := issuer.Generate("po-1")
	if _, err := verifier.Validate(token); !errors.Is(err, ErrBadRequest) {
		t.Errorf("токен с чужой подписью должен давать ErrBadRequest, получили %v", err)
	}
}

func TestPOTokenGarbage(t *testing.T) {
	svc := NewPOTokenService("test-secret", time.Hour)

	for _, token := range []string{"", "not-base64!!!", base64.StdEncoding.EncodeToString([]byte("no-parts"))} {
		if _, err := svc.Validate(token); !errors.Is(err, ErrBadRequest) {
			t.Errorf("мусорный токен %q должен давать ErrBadRequest, получили %v", token, err)
		}
	}
}
