package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorMapsNoRows(t *testing.T) {
	err := fmt.Errorf("get search: %w", pgx.ErrNoRows)

	de := ToDomainError(err)
	assert.Equal(t, "NOT_FOUND", de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewForbidden("Active subscription or trial required"))

	de := ToDomainError(err)
	assert.Equal(t, "FORBIDDEN", de.Code)
	assert.Equal(t, "Active subscription or trial required", de.Message)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestSearchLimitReachedPhrasing(t *testing.T) {
	trial := ToDomainError(NewSearchLimitReached(15, true))
	paid := ToDomainError(NewSearchLimitReached(999999, false))

	assert.Equal(t, "SEARCH_LIMIT_REACHED", trial.Code)
	assert.Contains(t, trial.Message, "(15 searches per day)")
	assert.Contains(t, trial.Message, "Upgrade")
	assert.Contains(t, paid.Message, "try again tomorrow")
	assert.NotEqual(t, trial.Message, paid.Message)
}
