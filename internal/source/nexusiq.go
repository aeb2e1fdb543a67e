package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repopulse/internal/data"
)

// ArtifactSource reads application evaluation metrics from a Nexus IQ server.
// Applications are matched by public ID, case-insensitively, against the
// repository name.
type ArtifactSource struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	now      func() time.Time
}

func NewArtifactSource(baseURL, username, password string, client *http.Client) *ArtifactSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &ArtifactSource{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		http:     client,
		now:      time.Now,
	}
}

func (s *ArtifactSource) Name() string { return NameArtifact }

func (s *ArtifactSource) auth(req *http.Request) {
	req.SetBasicAuth(s.username, s.password)
}

type nexusApplicationsResponse struct {
	Applications []struct {
		ID       string `json:"id"`
		PublicID string `json:"publicId"`
	} `json:"applications"`
}

type nexusReportResponse struct {
	EvaluationDate string `json:"evaluationDate"`
	SecurityIssues []struct {
		Severity string `json:"severity"`
	} `json:"securityIssues"`
	PolicyViolations []struct {
		Type string `json:"type"`
	} `json:"policyViolations"`
	Components []struct {
		Vulnerabilities []struct {
			ID string `json:"id"`
		} `json:"vulnerabilities"`
	} `json:"components"`
}

func (s *ArtifactSource) Fetch(ctx context.Context, target data.ScanTarget) (*data.SourceData, error) {
	var apps nexusApplicationsResponse
	u := s.baseURL + "/api/v2/applications"
	if err := getJSON(ctx, s.http, NameArtifact, target.FullName(), u, s.auth, &apps); err != nil {
		return nil, err
	}

	appID := ""
	for _, app := range apps.Applications {
		if strings.EqualFold(app.PublicID, target.Repo) {
			appID = app.ID
			break
		}
	}
	if appID == "" {
		return nil, &NotFoundError{Source: NameArtifact, Target: target.FullName()}
	}

	var report nexusReportResponse
	u = fmt.Sprintf("%s/api/v2/reports/applications/%s/latest", s.baseURL, url.PathEscape(appID))
	if err := getJSON(ctx, s.http, NameArtifact, target.FullName(), u, s.auth, &report); err != nil {
		return nil, err
	}

	snap := &data.ArtifactSnapshot{
		Repository:     target.FullName(),
		ApplicationID:  appID,
		LastEvaluation: report.EvaluationDate,
		RetrievedAt:    s.now().UTC(),
	}

	for _, issue := range report.SecurityIssues {
		switch strings.ToUpper(issue.Severity) {
		case "CRITICAL":
			snap.CriticalIssues++
		case "SEVERE":
			snap.SevereIssues++
		case "MODERATE":
			snap.ModerateIssues++
		case "LOW":
			snap.LowIssues++
		}
	}

	snap.PolicyViolations = len(report.PolicyViolations)
	for _, v := range report.PolicyViolations {
		switch strings.ToUpper(v.Type) {
		case "SECURITY":
			snap.SecurityViolations++
		case "LICENSE":
			snap.LicenseViolations++
		}
	}

	snap.TotalComponents = len(report.Components)
	for _, c := range report.Components {
		if len(c.Vulnerabilities) > 0 {
			snap.VulnerableComponents++
		}
	}

	snap.RiskScore = riskScore(snap)
	return &data.SourceData{Artifact: snap}, nil
}

// riskScore weighs issues by severity and caps the result at 100.
func riskScore(snap *data.ArtifactSnapshot) float64 {
	score := float64(snap.CriticalIssues*10 + snap.SevereIssues*7 + snap.ModerateIssues*4 + snap.LowIssues)
	if score > 100 {
		return 100
	}
	return score
}
