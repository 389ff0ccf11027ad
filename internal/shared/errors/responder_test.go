package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("order not found")

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/orders/:id", handler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/ORD-9", nil))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem
}

func TestChainedResponder_UsesFirstMatchingMapper(t *testing.T) {
	responder := NewChainedResponder("https://inventory.example",
		func(err error) (ProblemDetail, bool) {
			if errors.Is(err, errMissing) {
				return ErrNotFound.WithDetail(err.Error()), true
			}
			return ProblemDetail{}, false
		},
	)

	rec, problem := serve(t, func(c *gin.Context) {
		responder.RespondError(c, fmt.Errorf("lookup: %w", errMissing))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://inventory.example"+TypeNotFound, problem.Type)
	assert.Equal(t, "/orders/ORD-9", problem.Instance)
	assert.Equal(t, "lookup: order not found", problem.Detail)
}

func TestChainedResponder_FallsBackToInternal(t *testing.T) {
	responder := NewChainedResponder("")
	rec, problem := serve(t, func(c *gin.Context) {
		responder.RespondError(c, errors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, problem.Type)
	assert.Equal(t, "boom", problem.Detail)
}

func TestRespondError_PassesProblemThrough(t *testing.T) {
	rec, problem := serve(t, func(c *gin.Context) {
		RespondError(c, ErrConflict.WithDetail("flag already exists"))
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", problem.Title)
}

func TestWithExtension_DoesNotShareMaps(t *testing.T) {
	first := ErrNotFound.WithExtension("resourceType", "order")
	second := first.WithExtension("resourceType", "flag")
	assert.Equal(t, "order", first.Extensions["resourceType"])
	assert.Equal(t, "flag", second.Extensions["resourceType"])
	assert.Nil(t, ErrNotFound.Extensions)
}
