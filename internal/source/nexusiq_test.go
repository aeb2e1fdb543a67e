package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repopulse/internal/data"
)

func newNexusServer(t *testing.T, report string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/applications", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "iq-user", user)
		assert.Equal(t, "iq-pass", pass)
		fmt.Fprint(w, `{"applications": [
			{"id": "app-123", "publicId": "API"},
			{"id": "app-456", "publicId": "frontend"}
		]}`)
	})
	mux.HandleFunc("/api/v2/reports/applications/app-123/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, report)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestArtifactSource_FetchCountsAndScores(t *testing.T) {
	srv := newNexusServer(t, `{
		"evaluationDate": "2026-08-29T10:00:00.000+00:00",
		"securityIssues": [
			{"severity": "CRITICAL"},
			{"severity": "critical"},
			{"severity": "SEVERE"},
			{"severity": "MODERATE"},
			{"severity": "LOW"},
			{"severity": "LOW"}
		],
		"policyViolations": [
			{"type": "SECURITY"},
			{"type": "SECURITY"},
			{"type": "LICENSE"}
		],
		"components": [
			{"vulnerabilities": [{"id": "CVE-2026-0001"}]},
			{"vulnerabilities": []},
			{"vulnerabilities": [{"id": "CVE-2026-0002"}, {"id": "CVE-2026-0003"}]}
		]
	}`)

	// Application matching is case-insensitive against the repo name.
	src := NewArtifactSource(srv.URL, "iq-user", "iq-pass", srv.Client())
	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	require.NotNil(t, sd.Artifact)

	a := sd.Artifact
	assert.Equal(t, "app-123", a.ApplicationID)
	assert.Equal(t, 2, a.CriticalIssues)
	assert.Equal(t, 1, a.SevereIssues)
	assert.Equal(t, 1, a.ModerateIssues)
	assert.Equal(t, 2, a.LowIssues)
	assert.Equal(t, 3, a.PolicyViolations)
	assert.Equal(t, 2, a.SecurityViolations)
	assert.Equal(t, 1, a.LicenseViolations)
	assert.Equal(t, 3, a.TotalComponents)
	assert.Equal(t, 2, a.VulnerableComponents)
	// 2*10 + 1*7 + 1*4 + 2*1
	assert.InDelta(t, 33.0, a.RiskScore, 0.001)
}

func TestArtifactSource_RiskScoreCapsAt100(t *testing.T) {
	issues := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		issues = append(issues, `{"severity": "CRITICAL"}`)
	}
	srv := newNexusServer(t, fmt.Sprintf(`{
		"evaluationDate": "2026-08-29T10:00:00.000+00:00",
		"securityIssues": [%s],
		"policyViolations": [],
		"components": []
	}`, strings.Join(issues, ",")))

	src := NewArtifactSource(srv.URL, "iq-user", "iq-pass", srv.Client())
	sd, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, sd.Artifact.RiskScore, 0.001)
}

func TestArtifactSource_UnknownApplication(t *testing.T) {
	srv := newNexusServer(t, `{}`)

	src := NewArtifactSource(srv.URL, "iq-user", "iq-pass", srv.Client())
	_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "no-such-app"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestArtifactSource_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewArtifactSource(srv.URL, "iq-user", "wrong", srv.Client())
	_, err := src.Fetch(context.Background(), data.ScanTarget{Owner: "acme", Repo: "api"})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}
