package data

import "time"

// ArtifactSnapshot carries the artifact-repository evaluation metrics for one
// repository at one point in time. Same supersede-on-cycle lifecycle as
// QualitySnapshot.
type ArtifactSnapshot struct {
	Repository    string `bson:"repository"     json:"repository"`
	ApplicationID string `bson:"application_id" json:"application_id"`

	CriticalIssues       int     `bson:"critical_issues"       json:"critical_issues"`
	SevereIssues         int     `bson:"severe_issues"         json:"severe_issues"`
	ModerateIssues       int     `bson:"moderate_issues"       json:"moderate_issues"`
	LowIssues            int     `bson:"low_issues"            json:"low_issues"`
	PolicyViolations     int     `bson:"policy_violations"     json:"policy_violations"`
	SecurityViolations   int     `bson:"security_violations"   json:"security_violations"`
	LicenseViolations    int     `bson:"license_violations"    json:"license_violations"`
	TotalComponents      int     `bson:"total_components"      json:"total_components"`
	VulnerableComponents int     `bson:"vulnerable_components" json:"vulnerable_components"`
	RiskScore            float64 `bson:"risk_score"            json:"risk_score"`
	LastEvaluation       string  `bson:"last_evaluation,omitempty" json:"last_evaluation,omitempty"`

	RetrievedAt time.Time `bson:"retrieved_at" json:"retrieved_at"`
}
