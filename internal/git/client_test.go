package git

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	derrors "git.home.luguber.info/inful/docrunner/internal/errors"
)

// TestClassifyCloneError maps failure text to categories and retryability.
func TestClassifyCloneError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		category  derrors.ErrorCategory
		retryable bool
	}{
		{"auth", errors.New("authentication required"), derrors.CategoryCheckout, false},
		{"missing", errors.New("repository does not exist"), derrors.CategoryCheckout, false},
		{"timeout", errors.New("dial tcp: i/o timeout"), derrors.CategoryNetwork, true},
		{"refused", errors.New("connection refused"), derrors.CategoryNetwork, true},
		{"ratelimit", errors.New("403 rate limit exceeded"), derrors.CategoryNetwork, true},
		{"other", errors.New("object corrupted"), derrors.CategoryCheckout, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyCloneError("https://example/r.git", c.err)
			assert.Equal(t, c.category, derrors.GetCategory(got))
			assert.Equal(t, c.retryable, derrors.IsRetryable(got))
		})
	}
}

// TestIsUnknownRef recognizes the branch-vs-tag retry case.
func TestIsUnknownRef(t *testing.T) {
	assert.True(t, isUnknownRef(errors.New("reference not found")))
	assert.True(t, isUnknownRef(errors.New("couldn't find remote ref refs/heads/v1")))
	assert.False(t, isUnknownRef(errors.New("connection refused")))
}
