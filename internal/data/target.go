package data

import "fmt"

// ScanTarget identifies one repository subject to scanning. Targets are
// derived from configuration once per cycle and never persisted.
type ScanTarget struct {
	Owner string `bson:"owner" json:"owner"`
	Repo  string `bson:"repo"  json:"repo"`
}

func (t ScanTarget) FullName() string {
	return fmt.Sprintf("%s/%s", t.Owner, t.Repo)
}

func (t ScanTarget) Valid() bool {
	return t.Owner != "" && t.Repo != ""
}
