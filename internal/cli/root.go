package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "repopulse",
	Short: "Scan GitHub repositories and persist merged insight snapshots",
	Long: `repopulse walks a configured set of GitHub repositories, collects pull
request metadata plus SonarQube quality measures and Nexus IQ artifact
metrics, merges them into one snapshot per repository, and upserts the result
into MongoDB. A read-only API serves the stored documents to the dashboard.

Examples:
	# Run a single reconciliation cycle
	repopulse scan

	# Run on the configured interval until interrupted
	repopulse watch

	# Serve the read-only dashboard API
	repopulse serve

	# Print build info
	repopulse version

Configuration:
	All settings come from the environment (a .env file is honored):
	GITHUB_ORG, GITHUB_REPOS, GITHUB_TOKEN, SONAR_URL, SONAR_TOKEN,
	NEXUS_URL, NEXUS_USERNAME, NEXUS_PASSWORD, MONGO_URI, SCAN_INTERVAL.
	Missing required configuration is a startup-fatal error.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (prints every GitHub API call)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
