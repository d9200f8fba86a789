package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

func writeError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return rec, env
}

func TestErrorAppendsPostgresHint(t *testing.T) {
	rec, env := writeError(t, fmt.Errorf("list jobs: %w", &pq.Error{Code: "42P01"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, appErrors.ErrInternal.Code, env.Error.Code)
	assert.Contains(t, env.Error.Message, "run the schema migrations")
}

func TestErrorHintsPermissionDenied(t *testing.T) {
	rec, env := writeError(t, fmt.Errorf("count technicians: %w", &pq.Error{Code: "42501"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, env.Error.Message, "permission denied")
}

func TestErrorLeavesDomainErrorsUntouched(t *testing.T) {
	rec, env := writeError(t, appErrors.ErrAlreadyReviewed)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrAlreadyReviewed.Code, env.Error.Code)
	assert.Equal(t, "request already reviewed", env.Error.Message)
}
