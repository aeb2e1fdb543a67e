package data

import "time"

// QualitySnapshot carries the static-analysis measures for one repository at
// one point in time. A new snapshot fully supersedes the previous one; values
// are never merged across cycles.
type QualitySnapshot struct {
	Repository string `bson:"repository" json:"repository"`
	ProjectKey string `bson:"project_key" json:"project_key"`

	Bugs            int     `bson:"bugs"            json:"bugs"`
	Vulnerabilities int     `bson:"vulnerabilities" json:"vulnerabilities"`
	CodeSmells      int     `bson:"code_smells"     json:"code_smells"`
	Coverage        float64 `bson:"coverage"        json:"coverage"`
	DuplicationPct  float64 `bson:"duplication_pct" json:"duplication_pct"`
	LinesOfCode     int     `bson:"lines_of_code"   json:"lines_of_code"`
	QualityGate     string  `bson:"quality_gate"    json:"quality_gate"`
	LastAnalysis    string  `bson:"last_analysis,omitempty" json:"last_analysis,omitempty"`

	RetrievedAt time.Time `bson:"retrieved_at" json:"retrieved_at"`
}
