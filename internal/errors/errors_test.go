package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorInterface(t *testing.T) {
	err := New(CodeUpstream, "Upstream API failed")
	assert.Equal(t, "UPSTREAM_ERROR: Upstream API failed", err.Error())
}

func TestUnknownOperationDetails(t *testing.T) {
	err := UnknownOperation("GetPlayer", []string{"ListLeagues", "GetTeam"})

	assert.Equal(t, CodeUnknownOperation, err.Code)
	assert.Equal(t, []string{"ListLeagues", "GetTeam"}, err.Details["valid_operations"])
}

func TestValidationDetails(t *testing.T) {
	err := Validation([]FieldError{
		{Field: "league_season", Message: "league_season is required", Type: "required"},
	})

	assert.Equal(t, CodeValidation, err.Code)
	fieldErrors, ok := err.Details["validation_errors"].([]FieldError)
	require.True(t, ok)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, "league_season", fieldErrors[0].Field)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeUnknownOperation, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeUpstream, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{"SOMETHING_ELSE", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestJSONShape(t *testing.T) {
	err := Upstream("status 503")

	data, jsonErr := json.Marshal(err)
	require.NoError(t, jsonErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Upstream API failed", decoded["error"])
	assert.Equal(t, "UPSTREAM_ERROR", decoded["code"])
	details, ok := decoded["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "status 503", details["message"])
}

func TestJSONShapeOmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(New(CodeNotFound, "Endpoint not found"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "details")
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	typed := Upstream("boom")
	assert.Same(t, typed, AsError(typed))

	wrapped := AsError(errors.New("plain failure"))
	assert.Equal(t, CodeInternal, wrapped.Code)
}
