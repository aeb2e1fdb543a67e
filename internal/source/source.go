// Package source defines the upstream client contract and one adapter per
// external data source. Adapters normalize raw upstream payloads into
// data.SourceData; the reconciler never sees a source-specific shape.
package source

import (
	"context"

	"repopulse/internal/data"
)

// Well-known source names, used as keys in RepositorySnapshot.Sources.
const (
	NamePullRequests = "github"
	NameQuality      = "sonarqube"
	NameArtifact     = "nexusiq"
)

// Source fetches a normalized snapshot for one target. Implementations are
// stateless and safe for concurrent use across targets; credentials are
// supplied at construction.
type Source interface {
	Name() string
	Fetch(ctx context.Context, target data.ScanTarget) (*data.SourceData, error)
}
