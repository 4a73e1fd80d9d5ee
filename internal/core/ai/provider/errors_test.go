package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"meal-intake/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTTP(t *testing.T) {
	assert.ErrorIs(t, ClassifyHTTP(http.StatusUnauthorized, "", "", "no"), common.ErrInvalidCredential)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusBadRequest, "invalid_api_key", "", "no"), common.ErrInvalidCredential)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusTooManyRequests, "insufficient_quota", "", "no"), common.ErrQuotaExceeded)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusTooManyRequests, "", "", "slow"), common.ErrUpstreamTransport)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusGatewayTimeout, "", "", ""), common.ErrUpstreamTimeout)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusServiceUnavailable, "", "", ""), common.ErrUpstreamTransport)
	assert.ErrorIs(t, ClassifyHTTP(http.StatusUnprocessableEntity, "", "", ""), common.ErrUpstreamRejected)
}

func TestClassifyTransport(t *testing.T) {
	assert.Nil(t, ClassifyTransport(nil))
	assert.ErrorIs(t, ClassifyTransport(fmt.Errorf("post: %w", context.DeadlineExceeded)), common.ErrUpstreamTimeout)
	assert.ErrorIs(t, ClassifyTransport(errors.New("connection refused")), common.ErrUpstreamTransport)

	quota := common.Wrap(common.ErrQuotaExceeded, errors.New("x"))
	assert.Same(t, quota, ClassifyTransport(quota))
}

func TestClassifiedErrorsAreRetriableOnlyWhenTransient(t *testing.T) {
	assert.True(t, common.Retriable(ClassifyHTTP(http.StatusBadGateway, "", "", "")))
	assert.False(t, common.Retriable(ClassifyHTTP(http.StatusUnauthorized, "", "", "")))
	assert.False(t, common.Retriable(ClassifyHTTP(http.StatusTooManyRequests, "insufficient_quota", "", "")))
	assert.False(t, common.StrictRetriable(ClassifyHTTP(http.StatusBadRequest, "", "", "")))
}

func TestSplitDataURI(t *testing.T) {
	format, data, err := SplitDataURI("data:image/jpeg;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, []byte("hello"), data)

	_, _, err = SplitDataURI("aGVsbG8=")
	assert.Error(t, err)
	_, _, err = SplitDataURI("data:image/png,raw")
	assert.Error(t, err)
}
