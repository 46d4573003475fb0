package integrity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)
	return s
}

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a, err := CanonicalJSON(map[string]any{"b": 1, "a": "x", "c": map[string]any{"z": true, "y": nil}})
	require.NoError(t, err)
	b, err := CanonicalJSON(map[string]any{"c": map[string]any{"y": nil, "z": true}, "a": "x", "b": 1})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, `{"a":"x","b":1,"c":{"y":null,"z":true}}`, string(a))
}

func TestCanonicalJSON_StructAndRoundTripAgree(t *testing.T) {
	type payload struct {
		StudentID string `json:"studentId"`
		Seats     int    `json:"seats"`
		Note      string `json:"note"`
	}
	p := payload{StudentID: "s-1", Seats: 40, Note: "<b>&"}
	direct, err := CanonicalJSON(p)
	require.NoError(t, err)

	// Lo que vuelve de la base: map genérico con float64.
	raw, _ := json.Marshal(p)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	again, err := CanonicalJSON(back)
	require.NoError(t, err)

	assert.Equal(t, string(direct), string(again))
	assert.Contains(t, string(direct), "<b>&")
}

func TestCanonicalJSON_NilIsEmptyObject(t *testing.T) {
	a, _ := CanonicalJSON(nil)
	b, _ := CanonicalJSON(map[string]any(nil))
	assert.Equal(t, "{}", string(a))
	assert.Equal(t, "{}", string(b))
}

func TestCanonical_FixedLayout(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.FixedZone("x", 3600))
	got, err := Canonical(Action{
		Name:         "COURSE_REGISTER",
		ResourceType: "registration",
		ResourceID:   "r1",
		Details:      map[string]any{"courseId": "c1"},
		Timestamp:    ts,
	})
	require.NoError(t, err)
	want := "v1\naction=COURSE_REGISTER\nactor=system\nresource=registration:r1\nts=2026-01-02T02:04:05.123456Z\ndetails={\"courseId\":\"c1\"}"
	assert.Equal(t, want, string(got))
}

func TestSignVerify(t *testing.T) {
	s := testSigner(t)
	a := Action{Name: "LOGIN_FAILED", Details: map[string]any{"reason": "Invalid password"}, Timestamp: time.Now()}

	h, err := s.Sign(a)
	require.NoError(t, err)
	assert.Len(t, h, 64)

	ok, err := s.Verify(a, h)
	require.NoError(t, err)
	assert.True(t, ok)

	a.Details = map[string]any{"reason": "User not found"}
	ok, err = s.Verify(a, h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSign_KeyMatters(t *testing.T) {
	a := Action{Name: "X", Timestamp: time.Unix(0, 0)}
	s1 := testSigner(t)
	s2, err := NewSigner([]byte(strings.Repeat("z", 32)))
	require.NoError(t, err)
	h1, _ := s1.Sign(a)
	h2, _ := s2.Sign(a)
	assert.NotEqual(t, h1, h2)
}

func TestNewSigner_ShortKey(t *testing.T) {
	_, err := NewSigner([]byte("short"))
	assert.ErrorIs(t, err, ErrShortKey)
}

func TestClose(t *testing.T) {
	s := testSigner(t)
	s.Close()
	_, err := s.Sign(Action{})
	assert.ErrorIs(t, err, ErrClosed)
}
