package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseWithJson(t *testing.T) {
	rec := httptest.NewRecorder()
	ResponseWithJson(rec, http.StatusAccepted, map[string]int{"workers": 3})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"workers":3}`, rec.Body.String())
}

func TestResponseError(t *testing.T) {
	rec := httptest.NewRecorder()
	ResponseError(rec, "worker not connected", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"worker not connected"}`, rec.Body.String())
}
