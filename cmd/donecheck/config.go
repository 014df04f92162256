package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"donecheck/internal/config"
	"donecheck/internal/paths"
)

var (
	configFormat   string
	configShowDiff bool
	configForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage donecheck configuration",
	Long:  "View and manage donecheck configuration stored in .donecheck/config.json",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot, err := resolveRepoRoot()
		if err != nil {
			return err
		}
		return initConfig(repoRoot, configForce, cmd.OutOrStdout())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective donecheck configuration.

Examples:
  donecheck config show                 # Pretty-print current config
  donecheck config show --format json   # Raw JSON output
  donecheck config show --diff          # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot, err := resolveRepoRoot()
		if err != nil {
			return err
		}
		return showConfig(repoRoot, configFormat, configShowDiff, cmd.OutOrStdout())
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot, err := resolveRepoRoot()
		if err != nil {
			return err
		}
		return validateConfig(repoRoot, cmd.OutOrStdout())
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Supported environment overrides:")
		for _, key := range config.EnvKeys {
			fmt.Fprintf(out, "  %-40s → %s\n", config.EnvVar(key), key)
		}
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config.json")
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	Config       map[string]interface{} `json:"config"`
}

func initConfig(repoRoot string, force bool, w io.Writer) error {
	configPath := paths.ConfigPath(repoRoot)
	if _, err := os.Stat(configPath); err == nil && !force {
		// Already initialized is success.
		fmt.Fprintln(w, "donecheck already initialized.")
		fmt.Fprintf(w, "Configuration at: %s\n", configPath)
		fmt.Fprintln(w, "\nRun 'donecheck config init --force' to overwrite it.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(w, "Wrote default configuration to %s\n", configPath)
	return nil
}

func showConfig(repoRoot, format string, diffOnly bool, w io.Writer) error {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Report the root-relative form a saved config carries.
	cfg.RepoRoot = "."

	configMap, err := toMap(cfg)
	if err != nil {
		return err
	}
	defaultMap, err := toMap(config.DefaultConfig())
	if err != nil {
		return err
	}
	if diffOnly {
		configMap = computeDiff(configMap, defaultMap)
	}

	configPath := paths.ConfigPath(repoRoot)
	usedDefaults := false
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
		usedDefaults = true
	}

	if format == "json" {
		return writeJSON(w, ConfigShowResponse{
			ConfigPath:   configPath,
			UsedDefaults: usedDefaults,
			Config:       configMap,
		})
	}

	fmt.Fprintln(w, "donecheck Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))
	if usedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else {
		fmt.Fprintf(w, "Source: %s\n", configPath)
	}
	for _, key := range config.EnvKeys {
		if v, ok := os.LookupEnv(config.EnvVar(key)); ok {
			fmt.Fprintf(w, "Override: %s=%s → %s\n", config.EnvVar(key), v, key)
		}
	}
	fmt.Fprintln(w)

	flat := make(map[string]interface{})
	flatten("", configMap, flat)
	defaults := make(map[string]interface{})
	flatten("", defaultMap, defaults)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if diffOnly && len(keys) == 0 {
		fmt.Fprintln(w, "No settings differ from the defaults.")
		return nil
	}
	for _, k := range keys {
		printConfigValue(w, k, flat[k], defaults[k])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'donecheck config show --format json' for full configuration")
	return nil
}

func validateConfig(repoRoot string, w io.Writer) error {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, "Configuration is valid.")
	return err
}

func printConfigValue(w io.Writer, name string, value, defaultValue interface{}) {
	modified := ""
	if !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", valueOrDefault(fmt.Sprint(defaultValue), "none"))
	}
	fmt.Fprintf(w, "%s: %v%s\n", name, value, modified)
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// flatten writes nested maps as dotted keys; lists stay whole.
func flatten(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// computeDiff returns only the values in config that differ from defaults.
func computeDiff(config, defaults map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for key, val := range config {
		defVal, exists := defaults[key]
		if !exists {
			result[key] = val
			continue
		}

		valMap, valIsMap := val.(map[string]interface{})
		defMap, defIsMap := defVal.(map[string]interface{})
		if valIsMap && defIsMap {
			if diff := computeDiff(valMap, defMap); len(diff) > 0 {
				result[key] = diff
			}
			continue
		}

		if !isEqual(val, defVal) {
			result[key] = val
		}
	}

	return result
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" || value == "<nil>" {
		return defaultValue
	}
	return value
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
