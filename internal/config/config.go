package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"donecheck/internal/paths"
)

// CurrentVersion is the config schema version this build reads and writes.
const CurrentVersion = 1

// Config represents the complete donecheck configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Index      IndexConfig      `json:"index" mapstructure:"index"`
	Planning   PlanningConfig   `json:"planning" mapstructure:"planning"`
	Todos      TodosConfig      `json:"todos" mapstructure:"todos"`
	Collectors CollectorsConfig `json:"collectors" mapstructure:"collectors"`
	Scoring    ScoringConfig    `json:"scoring" mapstructure:"scoring"`
	Classifier ClassifierConfig `json:"classifier" mapstructure:"classifier"`
	Aggregate  AggregateConfig  `json:"aggregate" mapstructure:"aggregate"`
	Engine     EngineConfig     `json:"engine" mapstructure:"engine"`
	Registry   RegistryConfig   `json:"registry" mapstructure:"registry"`
	History    HistoryConfig    `json:"history" mapstructure:"history"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// IndexConfig controls how the repository index walks the tree
type IndexConfig struct {
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	RespectGitignore bool     `json:"respectGitignore" mapstructure:"respectGitignore"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	MaxFiles         int      `json:"maxFiles" mapstructure:"maxFiles"`
}

// PlanningConfig locates planning documents and the headings that mark planned work
type PlanningConfig struct {
	Paths           []string `json:"paths" mapstructure:"paths"`
	Include         []string `json:"include" mapstructure:"include"`
	PlannedHeadings []string `json:"plannedHeadings" mapstructure:"plannedHeadings"`
}

// TodosConfig configures TODO comment extraction
type TodosConfig struct {
	Markers       []string `json:"markers" mapstructure:"markers"`
	UseTreeSitter bool     `json:"useTreeSitter" mapstructure:"useTreeSitter"`
}

// CollectorsConfig holds the heuristic tables used by the evidence collectors
type CollectorsConfig struct {
	SourceExtensions   []string   `json:"sourceExtensions" mapstructure:"sourceExtensions"`
	StopWords          []string   `json:"stopWords" mapstructure:"stopWords"`
	BuildDirs          []string   `json:"buildDirs" mapstructure:"buildDirs"`
	TestDirs           []string   `json:"testDirs" mapstructure:"testDirs"`
	TestMarkers        []string   `json:"testMarkers" mapstructure:"testMarkers"`
	DefaultPrefixes    []string   `json:"defaultPrefixes" mapstructure:"defaultPrefixes"`
	ArchiveSegments    []string   `json:"archiveSegments" mapstructure:"archiveSegments"`
	DeprecationMarkers []string   `json:"deprecationMarkers" mapstructure:"deprecationMarkers"`
	ResolvedMarkers    []string   `json:"resolvedMarkers" mapstructure:"resolvedMarkers"`
	MaxStatementLength int        `json:"maxStatementLength" mapstructure:"maxStatementLength"`
	MaxPatternMatches  int        `json:"maxPatternMatches" mapstructure:"maxPatternMatches"`
	MaxNameKeys        int        `json:"maxNameKeys" mapstructure:"maxNameKeys"`
	MinKeywordLength   int        `json:"minKeywordLength" mapstructure:"minKeywordLength"`
	MaxReadBytes       int        `json:"maxReadBytes" mapstructure:"maxReadBytes"`
	Scip               ScipConfig `json:"scip" mapstructure:"scip"`
	Git                GitConfig  `json:"git" mapstructure:"git"`
}

// ScipConfig enables SCIP-backed usage detection
type ScipConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	IndexPath string `json:"indexPath" mapstructure:"indexPath"`
}

// GitConfig enables git-backed TODO age detection
type GitConfig struct {
	Enabled   bool `json:"enabled" mapstructure:"enabled"`
	TimeoutMs int  `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// ScoringConfig holds the fixed, named weights per evidence category
type ScoringConfig struct {
	Feature FeatureWeights `json:"feature" mapstructure:"feature"`
	Todo    TodoWeights    `json:"todo" mapstructure:"todo"`
}

// FeatureWeights are the feature-implementation weights
type FeatureWeights struct {
	Files                  int `json:"files" mapstructure:"files"`
	Usage                  int `json:"usage" mapstructure:"usage"`
	Tests                  int `json:"tests" mapstructure:"tests"`
	Patterns               int `json:"patterns" mapstructure:"patterns"`
	UsageSaturation        int `json:"usageSaturation" mapstructure:"usageSaturation"`
	PatternPointsPerMatch  int `json:"patternPointsPerMatch" mapstructure:"patternPointsPerMatch"`
	PatternDiscountPercent int `json:"patternDiscountPercent" mapstructure:"patternDiscountPercent"`
}

// TodoWeights are the TODO-completion weights
type TodoWeights struct {
	Archival               int `json:"archival" mapstructure:"archival"`
	Stale                  int `json:"stale" mapstructure:"stale"`
	Aging                  int `json:"aging" mapstructure:"aging"`
	ResolvedMarker         int `json:"resolvedMarker" mapstructure:"resolvedMarker"`
	Files                  int `json:"files" mapstructure:"files"`
	Usage                  int `json:"usage" mapstructure:"usage"`
	Tests                  int `json:"tests" mapstructure:"tests"`
	Patterns               int `json:"patterns" mapstructure:"patterns"`
	PatternPointsPerMatch  int `json:"patternPointsPerMatch" mapstructure:"patternPointsPerMatch"`
	PatternDiscountPercent int `json:"patternDiscountPercent" mapstructure:"patternDiscountPercent"`
	StaleAfterDays         int `json:"staleAfterDays" mapstructure:"staleAfterDays"`
	AgingAfterDays         int `json:"agingAfterDays" mapstructure:"agingAfterDays"`
}

// ClassifierConfig holds status thresholds, band boundaries and task-type heuristics
type ClassifierConfig struct {
	ImplementedFloor     int              `json:"implementedFloor" mapstructure:"implementedFloor"`
	LowConfidenceCeiling int              `json:"lowConfidenceCeiling" mapstructure:"lowConfidenceCeiling"`
	HighConfidenceFloor  int              `json:"highConfidenceFloor" mapstructure:"highConfidenceFloor"`
	Bands                BandThresholds   `json:"bands" mapstructure:"bands"`
	TaskTypes            []TaskTypeConfig `json:"taskTypes" mapstructure:"taskTypes"`
}

// BandThresholds are the inclusive lower bounds of the TODO bands
type BandThresholds struct {
	VeryHigh int `json:"veryHigh" mapstructure:"veryHigh"`
	High     int `json:"high" mapstructure:"high"`
	Medium   int `json:"medium" mapstructure:"medium"`
	Low      int `json:"low" mapstructure:"low"`
}

// TaskTypeConfig describes one task-type heuristic
type TaskTypeConfig struct {
	Name              string   `json:"name" mapstructure:"name"`
	Keywords          []string `json:"keywords" mapstructure:"keywords"`
	DirectoryPrefixes []string `json:"directoryPrefixes" mapstructure:"directoryPrefixes"`
	ExpectsFile       bool     `json:"expectsFile" mapstructure:"expectsFile"`
	Explanation       string   `json:"explanation" mapstructure:"explanation"`
	CheckInstead      []string `json:"checkInstead" mapstructure:"checkInstead"`
}

// AggregateConfig contains rollup settings
type AggregateConfig struct {
	TopN int `json:"topN" mapstructure:"topN"`
}

// EngineConfig contains batch evaluation settings
type EngineConfig struct {
	Workers            int `json:"workers" mapstructure:"workers"`
	CandidateTimeoutMs int `json:"candidateTimeoutMs" mapstructure:"candidateTimeoutMs"`
}

// RegistryConfig points at the human-maintained feature status registry
type RegistryConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	MaxRuns int  `json:"maxRuns" mapstructure:"maxRuns"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		RepoRoot: ".",
		Index: IndexConfig{
			Ignore:           []string{".git", "node_modules", "vendor", ".donecheck", ".venv", "__pycache__"},
			RespectGitignore: true,
			MaxFileSizeBytes: 1000000,
			MaxFiles:         50000,
		},
		Planning: PlanningConfig{
			Paths:           []string{"docs", "TODO.md", "ROADMAP.md", "PLAN.md", "FEATURES.md", "roadmap.yaml", "road-map.yaml"},
			Include:         []string{"*.md", "*.markdown", "road*map.y*ml"},
			PlannedHeadings: []string{"roadmap", "planned", "features", "todo", "backlog", "next", "milestone", "tasks"},
		},
		Todos: TodosConfig{
			Markers:       []string{"TODO", "FIXME", "BUG", "HACK", "XXX", "OPTIMIZE"},
			UseTreeSitter: true,
		},
		Collectors: CollectorsConfig{
			SourceExtensions: []string{
				".go", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".py", ".rs",
				".java", ".kt", ".rb", ".swift", ".cs", ".vue", ".svelte",
				".sh", ".pl", ".sql", ".lua", ".hs", ".elm", ".html",
			},
			StopWords: []string{
				"a", "an", "the", "to", "for", "of", "in", "on", "and", "or", "with", "by", "from",
				"add", "adding", "implement", "implementing", "create", "support", "new", "make",
				"update", "improve", "use", "using", "should", "would", "when", "into", "all",
				"be", "is", "are", "it", "this", "that", "as", "at", "we", "need", "needs",
				"todo", "fixme", "feature", "ability", "allow", "enable", "proper", "better",
			},
			BuildDirs:          []string{"dist", "build", "out", "target", ".next", "coverage"},
			TestDirs:           []string{"tests", "__tests__", "test", "spec"},
			TestMarkers:        []string{".test", ".spec", "_test", "test_"},
			DefaultPrefixes:    []string{"", "src", "lib", "internal", "pkg", "app"},
			ArchiveSegments:    []string{"archive", "archived", "deprecated", "legacy", "obsolete", "old"},
			DeprecationMarkers: []string{"@deprecated", "Deprecated:", "DEPRECATED"},
			ResolvedMarkers:    []string{"done", "fixed", "resolved", "completed", "implemented"},
			MaxStatementLength: 100,
			MaxPatternMatches:  50,
			MaxNameKeys:        8,
			MinKeywordLength:   3,
			MaxReadBytes:       256 * 1024,
			Scip: ScipConfig{
				Enabled:   true,
				IndexPath: ".scip/index.scip",
			},
			Git: GitConfig{
				Enabled:   true,
				TimeoutMs: 5000,
			},
		},
		Scoring: ScoringConfig{
			Feature: FeatureWeights{
				Files:                  30,
				Usage:                  20,
				Tests:                  20,
				Patterns:               30,
				UsageSaturation:        2,
				PatternPointsPerMatch:  10,
				PatternDiscountPercent: 50,
			},
			Todo: TodoWeights{
				Archival:               60,
				Stale:                  30,
				Aging:                  15,
				ResolvedMarker:         20,
				Files:                  10,
				Usage:                  5,
				Tests:                  5,
				Patterns:               10,
				PatternPointsPerMatch:  5,
				PatternDiscountPercent: 50,
				StaleAfterDays:         180,
				AgingAfterDays:         90,
			},
		},
		Classifier: ClassifierConfig{
			ImplementedFloor:     30,
			LowConfidenceCeiling: 60,
			HighConfidenceFloor:  70,
			Bands: BandThresholds{
				VeryHigh: 90,
				High:     70,
				Medium:   50,
				Low:      30,
			},
			TaskTypes: DefaultTaskTypes(),
		},
		Aggregate: AggregateConfig{
			TopN: 10,
		},
		Engine: EngineConfig{
			Workers:            4,
			CandidateTimeoutMs: 0,
		},
		Registry: RegistryConfig{
			Path: ".donecheck/registry.json",
		},
		History: HistoryConfig{
			Enabled: true,
			MaxRuns: 50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       true,
			MaxSize:    "5MB",
			MaxBackups: 3,
		},
	}
}

// DefaultTaskTypes returns the built-in task-type heuristics
func DefaultTaskTypes() []TaskTypeConfig {
	return []TaskTypeConfig{
		{
			Name:        "configuration",
			Keywords:    []string{"config", "configuration", "setting", "settings", "env", "environment", "flag", "toggle", "variable"},
			ExpectsFile: false,
			Explanation: "Configuration changes usually edit existing files rather than adding a dedicated one.",
			CheckInstead: []string{
				"package.json, go.mod or other manifests",
				".env / .env.example files",
				"existing config modules (config.*, settings.*)",
			},
		},
		{
			Name:        "maintenance",
			Keywords:    []string{"refactor", "cleanup", "clean", "rename", "remove", "migrate", "upgrade", "bump", "deprecate", "simplify", "lint"},
			ExpectsFile: false,
			Explanation: "Maintenance and refactoring work changes existing code and leaves no new file behind.",
			CheckInstead: []string{
				"git log for commits mentioning the change",
				"the files named in the task description",
			},
		},
		{
			Name:        "documentation",
			Keywords:    []string{"readme", "docs", "document", "documentation", "guide", "changelog", "tutorial", "comment", "comments"},
			ExpectsFile: false,
			Explanation: "Documentation tasks land in markdown files, which are not scanned as implementation evidence.",
			CheckInstead: []string{
				"README.md and other markdown files",
				"the docs/ directory",
			},
		},
		{
			Name:              "build-deploy",
			Keywords:          []string{"build", "deploy", "deployment", "ci", "cd", "pipeline", "docker", "dockerfile", "release", "workflow", "kubernetes", "helm"},
			DirectoryPrefixes: []string{".github/workflows", "deploy", "scripts", "ci"},
			ExpectsFile:       false,
			Explanation:       "Build and deployment work lives in pipeline and container definitions rather than source files.",
			CheckInstead: []string{
				".github/workflows/ and other CI definitions",
				"Dockerfile, Makefile and deploy scripts",
			},
		},
		{
			Name:              "ui-component",
			Keywords:          []string{"component", "button", "modal", "page", "view", "screen", "layout", "form", "dialog", "ui", "widget", "navbar", "sidebar"},
			DirectoryPrefixes: []string{"components", "src/components", "app/components", "src/pages", "pages", "views", "src/views"},
			ExpectsFile:       true,
			Explanation:       "UI components normally get their own file; none matched the inferred component names.",
			CheckInstead: []string{
				"components/ directories under a different name",
				"an existing component that may have absorbed this feature",
			},
		},
		{
			Name:              "api-backend",
			Keywords:          []string{"api", "endpoint", "route", "handler", "server", "backend", "client", "service", "webhook", "middleware", "rest", "graphql"},
			DirectoryPrefixes: []string{"api", "src/api", "lib/api", "server", "routes", "handlers", "services", "internal"},
			ExpectsFile:       true,
			Explanation:       "API and backend work usually adds a handler, route or service file; none matched the inferred names.",
			CheckInstead: []string{
				"route tables and router registration",
				"existing service or client modules",
			},
		},
		{
			Name:              "state-management",
			Keywords:          []string{"state", "store", "redux", "context", "hook", "hooks", "reducer", "cache", "zustand", "signal"},
			DirectoryPrefixes: []string{"store", "stores", "state", "hooks", "src/hooks", "src/store", "context"},
			ExpectsFile:       true,
			Explanation:       "State management usually adds a store, hook or context module; none matched the inferred names.",
			CheckInstead: []string{
				"store/, hooks/ and context/ directories",
				"an existing store that may hold this state",
			},
		},
	}
}

// EnvKeys are the settings that DONECHECK_* environment variables can override.
var EnvKeys = []string{
	"engine.workers",
	"engine.candidateTimeoutMs",
	"logging.level",
	"history.enabled",
	"aggregate.topN",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return "DONECHECK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func lookupDefault(def *Config, key string) interface{} {
	switch key {
	case "engine.workers":
		return def.Engine.Workers
	case "engine.candidateTimeoutMs":
		return def.Engine.CandidateTimeoutMs
	case "logging.level":
		return def.Logging.Level
	case "history.enabled":
		return def.History.Enabled
	case "aggregate.topN":
		return def.Aggregate.TopN
	}
	return nil
}

// LoadConfig loads configuration from <repoRoot>/.donecheck/config.json.
// Missing files yield DefaultConfig; fields absent from the file keep their defaults.
// Environment variables prefixed with DONECHECK_ override scalar settings.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(repoRoot))

	v.SetEnvPrefix("DONECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	for _, key := range EnvKeys {
		v.SetDefault(key, lookupDefault(def, key))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "" || cfg.RepoRoot == "." {
		cfg.RepoRoot = repoRoot
	}

	return cfg, nil
}

// Save writes the configuration to <repoRoot>/.donecheck/config.json
func (c *Config) Save(repoRoot string) error {
	configPath := paths.ConfigPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, append(data, '\n'), 0o644)
}

// Timeout returns the per-candidate timeout, or zero when disabled.
func (e EngineConfig) Timeout() (ms int, enabled bool) {
	return e.CandidateTimeoutMs, e.CandidateTimeoutMs > 0
}
