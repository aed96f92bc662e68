package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("  Loading...  "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("a", MinContentLength)))
}

func TestCheckBrowserLocation(t *testing.T) {
	tests := []struct {
		name string
		loc  string
		kind Kind
	}{
		{name: "public", loc: "https://boards.greenhouse.io/acme/jobs/123"},
		{name: "loopback", loc: "http://127.0.0.1:8080/admin", kind: KindPrivateAddress},
		{name: "metadata", loc: "http://169.254.169.254/latest/meta-data/", kind: KindPrivateAddress},
		{name: "localhost", loc: "http://localhost/", kind: KindPrivateAddress},
		{name: "internal name", loc: "https://hr.corp.internal/jobs/1", kind: KindPrivateAddress},
		{name: "blank page", loc: "about:blank", kind: KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBrowserLocation(tt.loc, false)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.False(t, fetchErr.Retryable())
		})
	}

	assert.NoError(t, checkBrowserLocation("http://127.0.0.1:8080/admin", true))
}

func TestWithBrowser_RefusesInternalStartURL(t *testing.T) {
	_, err := WithBrowser(context.Background(), "http://10.0.0.5/jobs/1", time.Second, false, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrivateAddress))
}
