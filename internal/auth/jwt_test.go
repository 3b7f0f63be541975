package auth

import (
	"testing"
	"time"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "coachboard-test"
)

func TestIssueAndParse(t *testing.T) {
	subject := NewAnonymousID()
	pair, err := Issue(subject, "coach", testIssuer, testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty tokens")
	}

	claims, err := Parse(pair.AccessToken, testKey, testIssuer)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != subject || claims.Role != "coach" {
		t.Fatalf("claims wrong: %+v", claims)
	}

	// The refresh token carries the same subject, so re-issuing from it
	// keeps the coach bound to the same collection.
	refreshClaims, err := Parse(pair.RefreshToken, testKey, testIssuer)
	if err != nil {
		t.Fatal(err)
	}
	if refreshClaims.Subject != subject {
		t.Fatal("refresh subject mismatch")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("sub", "coach", testIssuer, testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", testIssuer); err == nil {
		t.Fatal("want error for wrong key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("sub", "coach", "someone-else", testKey, time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, testKey, testIssuer); err == nil {
		t.Fatal("want issuer mismatch error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("sub", "coach", testIssuer, testKey, -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, testKey, testIssuer); err == nil {
		t.Fatal("want expiry error")
	}
}

func TestNewAnonymousIDUnique(t *testing.T) {
	if NewAnonymousID() == NewAnonymousID() {
		t.Fatal("anonymous ids must be unique")
	}
}
