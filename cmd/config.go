package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bugless"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage bugless configuration.

Running bare 'bugless config' is the same as 'bugless config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# bugless configuration
# See: bugless config show (for effective values and sources)

# SQLite database path (default: ~/.config/bugless/bugless.db)
# db_path: {{ .DBPath }}

# Model used for reviews
llm:
  # "gemini" (default) or "anthropic"
  provider: "{{ .Provider }}"
  # Model name; empty uses the provider default
  model: "{{ .Model }}"

gemini:
  # Falls back to the GEMINI_API_KEY and API_KEY environment variables
  api_key: ""

anthropic:
  # Falls back to the ANTHROPIC_API_KEY environment variable
  api_key: ""
  model: "{{ .AnthropicModel }}"

# Web server
server:
  port: {{ .Port }}

# Browser sessions
session:
  # Cookie signing key; a random key is generated at start-up when empty
  secret: ""
  # Idle time before a browser client is dropped
  ttl: "{{ .SessionTTL }}"
  # Mark the cookie Secure; enable when served over HTTPS
  secure: false

# Google sign-in; disabled while client_id is empty
google:
  client_id: "{{ .GoogleClientID }}"
  client_secret: ""
  redirect_url: "{{ .GoogleRedirectURL }}"
  issuer: "{{ .GoogleIssuer }}"
`

type configTemplateData struct {
	DBPath            string
	Provider          string
	Model             string
	AnthropicModel    string
	Port              int
	SessionTTL        string
	GoogleClientID    string
	GoogleRedirectURL string
	GoogleIssuer      string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:            viper.GetString("db_path"),
		Provider:          viper.GetString("llm.provider"),
		Model:             viper.GetString("llm.model"),
		AnthropicModel:    viper.GetString("anthropic.model"),
		Port:              viper.GetInt("server.port"),
		SessionTTL:        viper.GetString("session.ttl"),
		GoogleClientID:    viper.GetString("google.client_id"),
		GoogleRedirectURL: viper.GetString("google.redirect_url"),
		GoogleIssuer:      viper.GetString("google.issuer"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "BUGLESS_DB_PATH"},
	{Key: "llm.provider", EnvVar: "BUGLESS_LLM_PROVIDER"},
	{Key: "llm.model", EnvVar: "BUGLESS_LLM_MODEL"},
	{Key: "gemini.api_key", EnvVar: "BUGLESS_GEMINI_API_KEY", Secret: true},
	{Key: "anthropic.api_key", EnvVar: "BUGLESS_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "BUGLESS_ANTHROPIC_MODEL"},
	{Key: "server.port", EnvVar: "BUGLESS_SERVER_PORT"},
	{Key: "session.secret", EnvVar: "BUGLESS_SESSION_SECRET", Secret: true},
	{Key: "session.ttl", EnvVar: "BUGLESS_SESSION_TTL"},
	{Key: "session.secure", EnvVar: "BUGLESS_SESSION_SECURE"},
	{Key: "google.client_id", EnvVar: "BUGLESS_GOOGLE_CLIENT_ID"},
	{Key: "google.client_secret", EnvVar: "BUGLESS_GOOGLE_CLIENT_SECRET", Secret: true},
	{Key: "google.redirect_url", EnvVar: "BUGLESS_GOOGLE_REDIRECT_URL"},
	{Key: "google.issuer", EnvVar: "BUGLESS_GOOGLE_ISSUER"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}
	if viper.GetString("gemini.api_key") == "" && geminiAPIKey() != "" {
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", "gemini.api_key", maskSecret(geminiAPIKey()), "(env: GEMINI_API_KEY/API_KEY)")
	}

	return nil
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'bugless config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
