package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joblink/chat-service/internal/domain"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "joblink")

	identity := domain.Identity{ID: "u1", DisplayName: "Alice", AvatarURL: "https://cdn/a.png"}
	token, err := v.Sign(identity, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != identity {
		t.Errorf("identity = %+v, want %+v", got, identity)
	}
}

func TestVerifyRejections(t *testing.T) {
	v := NewJWTVerifier("secret", "joblink")
	identity := domain.Identity{ID: "u1", DisplayName: "Alice"}

	expired, err := v.Sign(identity, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	otherSecret := NewJWTVerifier("other-secret", "joblink")
	forged, err := otherSecret.Sign(identity, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	otherIssuer := NewJWTVerifier("secret", "someone-else")
	wrongIssuer, err := otherIssuer.Sign(identity, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty credential", "", ErrInvalidToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong secret", forged, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
