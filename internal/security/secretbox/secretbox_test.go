package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestSealOpen_RoundTrip(t *testing.T) {
	b, err := New(testKey(1))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	msg := `{"studentId":"s1","action":"REGISTER"}`
	ct, err := b.Seal([]byte(msg))
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	pt, err := b.Open(ct)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	if string(pt) != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestOpen_DetectsTamper(t *testing.T) {
	b, _ := New(testKey(7))
	ct, err := b.Seal([]byte("top secret"))
	if err != nil {
		t.Fatalf("Seal err: %v", err)
	}
	parts := strings.Split(ct, "|")
	bs, _ := base64.StdEncoding.DecodeString(parts[1])
	bs[0] ^= 0xFF
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := b.Open(tampered); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if _, err := b.Open("garbage"); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for malformed input, got %v", err)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	a, _ := New(testKey(1))
	b, _ := New(testKey(2))
	ct, _ := a.Seal([]byte("hola"))
	if _, err := b.Open(ct); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity with wrong key, got %v", err)
	}
}

func TestClose_ZeroesKey(t *testing.T) {
	b, _ := New(testKey(3))
	b.Close()
	if _, err := b.Seal([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestParseKey(t *testing.T) {
	raw := testKey(9)
	for name, in := range map[string]string{
		"base64": base64.StdEncoding.EncodeToString(raw),
		"raw64":  base64.RawStdEncoding.EncodeToString(raw),
		"hex":    hex.EncodeToString(raw),
	} {
		k, err := ParseKey(in)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(k) != string(raw) {
			t.Fatalf("%s: key mismatch", name)
		}
	}
	if _, err := ParseKey("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}
