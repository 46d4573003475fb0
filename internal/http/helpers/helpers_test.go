package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
)

func TestReadJSON(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.edu","extra":1}`))
	r.Header.Set("Content-Type", "application/json")
	require.NoError(t, ReadJSON(httptest.NewRecorder(), r, &v))
	assert.Equal(t, "a@b.edu", v.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	r.Header.Set("Content-Type", "application/json")
	assert.ErrorIs(t, ReadJSON(httptest.NewRecorder(), r, &v), httperrors.ErrInvalidJSON)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	assert.ErrorIs(t, ReadJSON(httptest.NewRecorder(), r, &v), httperrors.ErrUnsupportedMediaType)
}

func TestClientIPAndBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", ClientIP(r))
	// el header lo puede poner cualquiera; sólo cuenta el socket
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "10.0.0.7", ClientIP(r))

	assert.Empty(t, BearerToken(r))
	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", BearerToken(r))
	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, BearerToken(r))
}
