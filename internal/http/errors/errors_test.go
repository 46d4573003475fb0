package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrCourseFull.WithDetail("CS101"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "COURSE_FULL", body["code"])
	assert.Equal(t, "CS101", body["detail"])
	assert.Empty(t, ErrCourseFull.Detail)
}

func TestWriteError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("pg: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestFromError_Wrapped(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ErrForbidden)
	assert.Equal(t, http.StatusForbidden, FromError(err).HTTPStatus)
}
