// Package version holds build metadata stamped into reports and the CLI.
package version

// Overridable at build time:
// go build -ldflags "-X donecheck/internal/version.Version=0.5.0 -X donecheck/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// ReportSchemaVersion is bumped whenever the JSON report layout changes incompatibly.
const ReportSchemaVersion = "1"

// BuildInfo is the machine-readable form of the build metadata.
type BuildInfo struct {
	Version      string `json:"version"`
	Commit       string `json:"commit"`
	BuildDate    string `json:"buildDate"`
	ReportSchema string `json:"reportSchema"`
}

// Current returns the build metadata of the running binary.
func Current() BuildInfo {
	return BuildInfo{
		Version:      Version,
		Commit:       Commit,
		BuildDate:    BuildDate,
		ReportSchema: ReportSchemaVersion,
	}
}

// Info returns "<version>" or "<version> (<short commit>)".
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line text printed by `donecheck version`.
func Full() string {
	return "donecheck version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Report schema: " + ReportSchemaVersion
}
