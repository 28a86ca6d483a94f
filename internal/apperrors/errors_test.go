package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/r3e-collective/tsdata-scheduler/internal/domain"
)

func TestHTTPStatus_MapsCategoriesPerSpec(t *testing.T) {
	cases := []struct {
		category domain.ErrorCategory
		want     int
	}{
		{domain.ErrorCategoryValidation, http.StatusBadRequest},
		{domain.ErrorCategoryMapping, http.StatusBadRequest},
		{domain.ErrorCategoryConfiguration, http.StatusUnprocessableEntity},
		{domain.ErrorCategoryAPI, http.StatusBadGateway},
		{domain.ErrorCategoryRateLimit, http.StatusBadGateway},
		{domain.ErrorCategoryPersistence, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := New(tc.category, "boom")
		assert.Equal(t, tc.want, HTTPStatus(err))
	}
}

func TestHTTPStatus_PlainErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.Equal(t, domain.ErrorCategoryUnknown, CategoryOf(errors.New("plain")))
}

func TestNotFound_OverridesHTTPStatus(t *testing.T) {
	err := NotFound("job", "abc")
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
	assert.Contains(t, err.Error(), "abc")
}

func TestConflict_OverridesHTTPStatus(t *testing.T) {
	err := Conflict("duplicate job_id")
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestWrap_PreservesCauseViaUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := Wrap(domain.ErrorCategoryPersistence, "insert failed", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestRetriable_FollowsCategory(t *testing.T) {
	retriable := New(domain.ErrorCategoryAPI, "timeout")
	notRetriable := New(domain.ErrorCategoryValidation, "bad input")
	assert.Equal(t, domain.ErrorCategoryAPI.Retriable(), retriable.Retriable())
	assert.Equal(t, domain.ErrorCategoryValidation.Retriable(), notRetriable.Retriable())
}
