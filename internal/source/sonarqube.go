package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"repopulse/internal/data"
)

// QualitySource reads static-analysis measures from a SonarQube server.
// Projects are keyed "<prefix><repo>" lowercased, matching how the CI
// pipeline registers them.
type QualitySource struct {
	baseURL   string
	token     string
	keyPrefix string
	http      *http.Client
	now       func() time.Time
}

func NewQualitySource(baseURL, token, keyPrefix string, client *http.Client) *QualitySource {
	if client == nil {
		client = http.DefaultClient
	}
	return &QualitySource{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		token:     token,
		keyPrefix: keyPrefix,
		http:      client,
		now:       time.Now,
	}
}

func (s *QualitySource) Name() string { return NameQuality }

// SonarQube token auth is HTTP basic with the token as username and an empty
// password.
func (s *QualitySource) auth(req *http.Request) {
	req.SetBasicAuth(s.token, "")
}

func (s *QualitySource) projectKey(target data.ScanTarget) string {
	return strings.ToLower(s.keyPrefix + target.Repo)
}

const sonarMetricKeys = "bugs,vulnerabilities,code_smells,coverage,duplicated_lines_density,ncloc"

type sonarMeasuresResponse struct {
	Component struct {
		Measures []struct {
			Metric string `json:"metric"`
			Value  string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

type sonarQualityGateResponse struct {
	ProjectStatus struct {
		Status string `json:"status"`
	} `json:"projectStatus"`
}

type sonarAnalysesResponse struct {
	Analyses []struct {
		Date string `json:"date"`
	} `json:"analyses"`
}

func (s *QualitySource) Fetch(ctx context.Context, target data.ScanTarget) (*data.SourceData, error) {
	key := s.projectKey(target)

	var measures sonarMeasuresResponse
	u := fmt.Sprintf("%s/api/measures/component?component=%s&metricKeys=%s",
		s.baseURL, url.QueryEscape(key), url.QueryEscape(sonarMetricKeys))
	if err := getJSON(ctx, s.http, NameQuality, target.FullName(), u, s.auth, &measures); err != nil {
		return nil, err
	}

	snap := &data.QualitySnapshot{
		Repository:  target.FullName(),
		ProjectKey:  key,
		RetrievedAt: s.now().UTC(),
	}
	for _, m := range measures.Component.Measures {
		switch m.Metric {
		case "bugs":
			snap.Bugs = atoiOrZero(m.Value)
		case "vulnerabilities":
			snap.Vulnerabilities = atoiOrZero(m.Value)
		case "code_smells":
			snap.CodeSmells = atoiOrZero(m.Value)
		case "coverage":
			snap.Coverage = atofOrZero(m.Value)
		case "duplicated_lines_density":
			snap.DuplicationPct = atofOrZero(m.Value)
		case "ncloc":
			snap.LinesOfCode = atoiOrZero(m.Value)
		}
	}

	var gate sonarQualityGateResponse
	u = fmt.Sprintf("%s/api/qualitygates/project_status?projectKey=%s", s.baseURL, url.QueryEscape(key))
	if err := getJSON(ctx, s.http, NameQuality, target.FullName(), u, s.auth, &gate); err != nil {
		return nil, err
	}
	snap.QualityGate = gate.ProjectStatus.Status

	var analyses sonarAnalysesResponse
	u = fmt.Sprintf("%s/api/project_analyses/search?project=%s&ps=1", s.baseURL, url.QueryEscape(key))
	if err := getJSON(ctx, s.http, NameQuality, target.FullName(), u, s.auth, &analyses); err != nil {
		return nil, err
	}
	if len(analyses.Analyses) > 0 {
		snap.LastAnalysis = analyses.Analyses[0].Date
	}

	return &data.SourceData{Quality: snap}, nil
}

func atoiOrZero(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func atofOrZero(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
