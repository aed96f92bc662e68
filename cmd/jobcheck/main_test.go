package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-validator/internal/config"
	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/server"
	"github.com/jonathan/job-validator/internal/types"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

// run executes the CLI in-process with no API key, so nothing reaches an
// engine.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JOBCHECK_LLM_API_KEY", "")
	t.Setenv("JOBCHECK_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadURLs(t *testing.T) {
	urls, err := readURLs(strings.NewReader(`
# greenhouse
https://boards.greenhouse.io/acme/jobs/1

  https://jobs.lever.co/acme/abc
#https://skipped.example
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://boards.greenhouse.io/acme/jobs/1", "https://jobs.lever.co/acme/abc"}, urls)
}

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example/jobs/1\n"), 0o600))

	urls, err := readURLFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/jobs/1"}, urls)

	urls, err = readURLFile("-", strings.NewReader("https://b.example/jobs/2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example/jobs/2"}, urls)

	_, err = readURLFile(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestValidateCommand_InvalidURLJSON(t *testing.T) {
	out, err := run(t, "", "validate", "not a url", "--json")
	require.ErrorIs(t, err, errNotValid)

	var res types.UnifiedValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.IsValid)
	assert.Equal(t, types.TierReachability, res.HighestTierReached)
	require.NotNil(t, res.Tier1)
	assert.True(t, res.Tier1.HasCode(types.CodeURLInvalidFormat))
}

func TestValidateCommand_HumanOutput(t *testing.T) {
	out, err := run(t, "", "validate", "ftp://files.example/job.txt")
	require.ErrorIs(t, err, errNotValid)
	assert.Contains(t, out, "JOB URL VALIDATION")
	assert.Contains(t, out, "INVALID")
}

func TestValidateCommand_RequiresOneArg(t *testing.T) {
	_, err := run(t, "", "validate")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errNotValid)
}

func TestBatchCommand(t *testing.T) {
	out, err := run(t, "not a url\n", "batch", "--file", "-", "--json", "also not a url")
	require.ErrorIs(t, err, errNotValid)

	var results []types.UnifiedValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "also not a url", results[0].URL)
	assert.Equal(t, "not a url", results[1].URL)
}

func TestBatchCommand_NoURLs(t *testing.T) {
	_, err := run(t, "", "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no URLs")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JOBCHECK_SERVER_JWT_SECRET", testSecret)

	out, err := run(t, "", "token", "--subject", "ci-bot", "--hours", "2")
	require.NoError(t, err)

	jwtConfig, err := config.NewJWTConfig(testSecret, 2)
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtConfig).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", claims.Subject)
	assert.WithinDuration(t, claims.IssuedAt.Add(jwtConfig.Expiration()), claims.ExpiresAt.Time, 0)
}

func TestTokenCommand_Errors(t *testing.T) {
	t.Setenv("JOBCHECK_SERVER_JWT_SECRET", "")
	_, err := run(t, "", "token", "--subject", "ci-bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOBCHECK_SERVER_JWT_SECRET")

	_, err = run(t, "", "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestHealthCommand_Remote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(pipeline.HealthSnapshot{Status: pipeline.StatusUnhealthy, Uptime: "5m0s"})
	}))
	defer ts.Close()

	out, err := run(t, "", "health", "--server", ts.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "VALIDATOR HEALTH")
	assert.Contains(t, out, "unhealthy")
}

func TestHealthCommand_Local(t *testing.T) {
	out, err := run(t, "", "health", "--json")
	require.NoError(t, err)

	var snapshot pipeline.HealthSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
	assert.Equal(t, pipeline.StatusHealthy, snapshot.Status)
	assert.True(t, snapshot.Tier3Enabled)
}
