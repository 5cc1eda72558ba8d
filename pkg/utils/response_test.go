package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCreatedResponse(rec, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusConflict, &APIError{Code: "ALREADY_HANDLED", Message: "invitation already accepted", Status: "accepted"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_HANDLED", body.Error.Code)
	assert.Equal(t, "accepted", body.Error.Status)
}

func TestParseJSONBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"arena"}`))
	require.NoError(t, ParseJSONBody(r, &v))
	assert.Equal(t, "arena", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.NoError(t, ParseJSONBody(r, &v), "empty body")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, ParseJSONBody(r, &v))
}

func TestQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?include_expired=true&limit=20&bad=x&off=0", nil)

	assert.True(t, GetBoolQueryParam(r, "include_expired"))
	assert.False(t, GetBoolQueryParam(r, "off"))
	assert.False(t, GetBoolQueryParam(r, "missing"))
	assert.Equal(t, 20, GetIntQueryParam(r, "limit", 100))
	assert.Equal(t, 100, GetIntQueryParam(r, "bad", 100))
	assert.Equal(t, "x", GetQueryParam(r, "bad", "d"))
	assert.Equal(t, "d", GetQueryParam(r, "nope", "d"))
}

func TestGenerateURLToken(t *testing.T) {
	a, err := GenerateURLToken(32)
	require.NoError(t, err)
	b, err := GenerateURLToken(0)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.Len(t, b, 32)
	assert.NotContains(t, a, "=")
}
