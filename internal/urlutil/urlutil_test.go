package urlutil

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"https", "https://jobs.example.com/job/1", nil},
		{"http with spaces", "  http://example.com/jobs/2  ", nil},
		{"empty", "   ", ErrInvalidFormat},
		{"no scheme", "example.com/jobs", ErrInvalidFormat},
		{"ftp", "ftp://example.com/file", ErrUnsupportedScheme},
		{"javascript", "javascript:alert(1)", ErrUnsupportedScheme},
		{"file", "file:///etc/passwd", ErrUnsupportedScheme},
		{"no host", "https:///path", ErrInvalidFormat},
		{"bad escape", "https://example.com/%zz", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.Host)
		})
	}
}

func TestNormalize_StripsTracking(t *testing.T) {
	u, err := Parse("https://WWW.Example.com/jobs/123/?utm_source=x&gclid=abc&jobId=9&ref=feed#apply")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/jobs/123?jobId=9", Normalize(u))

	a, _ := Parse("https://example.com/job/1?b=2&a=1")
	b, _ := Parse("https://example.com/job/1?a=1&b=2&utm_medium=email")
	assert.Equal(t, Normalize(a), Normalize(b))
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"jobs", "view", "123"}, Segments("/jobs//view/123/"))
	assert.Empty(t, Segments("/"))
}

func TestIsPrivateHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"api.localhost", true},
		{"printer.local", true},
		{"db.internal", true},
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.5", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.1.1", true},
		{"0.0.0.0", true},
		{"[::1]", true},
		{"fd00::1", true},
		{"example.com", false},
		{"8.8.8.8", false},
		{"jobs.lever.co", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrivateHost(tt.host))
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP(net.ParseIP("127.0.0.1")))
	assert.True(t, IsPrivateIP(net.ParseIP("::ffff:10.0.0.1")))
	assert.False(t, IsPrivateIP(net.ParseIP("1.1.1.1")))
}
