package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config is the assistant client configuration.
type Config struct {
	// BaseURL is the answer service endpoint.
	BaseURL string `json:"baseUrl,omitempty"`
	// APIKey authenticates against the answer service.
	APIKey string `json:"apiKey,omitempty"`
	// Scope is the default scope key, e.g. "global" or "grant/g1".
	Scope string `json:"scope,omitempty"`
	// DataDir overrides where session state is persisted.
	DataDir string `json:"dataDir,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty"`
	// Pretty enables human-readable log output.
	Pretty bool `json:"pretty,omitempty"`
}

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/grantline/)
// 2. Project config (./assist.json, ./.grantline/)
// 3. ASSIST_CONFIG file
// 4. ASSIST_CONFIG_CONTENT inline JSON
// 5. Environment variables
func Load(directory string) (*Config, error) {
	config := &Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "assist.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "assist.jsonc"), globalPath)

	// 2. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".grantline")
		loadOnce(filepath.Join(directory, "assist.json"), directory)
		loadOnce(filepath.Join(directory, "assist.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "assist.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "assist.jsonc"), projectConfigDir)
	}

	// 3. ASSIST_CONFIG file override
	if configPath := os.Getenv("ASSIST_CONFIG"); configPath != "" {
		configDir := filepath.Dir(configPath)
		loadOnce(configPath, configDir)
	}

	// 4. ASSIST_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("ASSIST_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 5. Environment variables (highest priority)
	applyEnvOverrides(config)

	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders, useful for key files
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		return strings.TrimSpace(string(content))
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *Config) {
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.Scope != "" {
		target.Scope = source.Scope
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.Pretty {
		target.Pretty = true
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	if server := os.Getenv("ASSIST_SERVER"); server != "" {
		config.BaseURL = server
	}
	if key := os.Getenv("ASSIST_API_KEY"); key != "" {
		config.APIKey = key
	}
	if scope := os.Getenv("ASSIST_SCOPE"); scope != "" {
		config.Scope = scope
	}
	if dir := os.Getenv("ASSIST_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
	if level := os.Getenv("ASSIST_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
}

// applyDefaults fills in anything no source provided.
func applyDefaults(config *Config) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:4406"
	}
	if config.Scope == "" {
		config.Scope = "global"
	}
	if config.DataDir == "" {
		config.DataDir = GetPaths().StoragePath()
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// Save saves the configuration to a file.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
