package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{fmt.Errorf("transfer: %w", model.ErrInsufficientFunds), http.StatusConflict, "INSUFFICIENT_FUNDS"},
		{model.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{model.ErrUnauthorized, http.StatusForbidden, "FORBIDDEN"},
		{model.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND"},
		{model.Unavailable("get account", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{errors.New("something else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{BadRequest("invalid JSON"), http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := FromDomain(tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestFromDomainAlreadyClaimed(t *testing.T) {
	err := &model.AlreadyClaimedError{TimeUntilReset: 90 * time.Minute}
	got := FromDomain(err)
	assert.Equal(t, http.StatusConflict, got.StatusCode)
	assert.Equal(t, 90*time.Minute, got.RetryAfter)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code       string `json:"code"`
			RetryAfter int64  `json:"retry_after_seconds"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(got.ToJSON(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ALREADY_CLAIMED", body.Error.Code)
	assert.Equal(t, int64(5400), body.Error.RetryAfter)
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := FromDomain(errors.New("pq: password authentication failed"))
	assert.NotContains(t, got.Message, "password")
}
