// pkg/config/config.go - configuration settings for the IGP Tools maintenance utilities.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
	"gopkg.in/yaml.v3"
)

const ConfigPath = `C:\ProgramData\IGPTools\Config.yaml`

// Policy registry path for enterprise-managed configuration. Values set
// here win only when the YAML file is absent.
const PolicyRegistryPath = `SOFTWARE\IGPTools\Config`

// Configuration holds the configurable options for the IGP Tools in YAML format.
type Configuration struct {
	// Repository synchronization
	RepoURL   string `yaml:"RepoURL"`
	Branch    string `yaml:"Branch"`
	TargetDir string `yaml:"TargetDir"`

	// Installation
	InstallPath   string `yaml:"InstallPath"`
	UpdaterURL    string `yaml:"UpdaterURL"`
	UpdaterSHA256 string `yaml:"UpdaterSHA256"`

	// Scheduled shutdown, 24h clock (e.g. "22:00")
	ShutdownTime string `yaml:"ShutdownTime"`

	// Scheduled task ceiling for unattended sync runs, in minutes
	TaskTimeLimitMinutes int `yaml:"TaskTimeLimitMinutes"`

	// Logging
	LogPath  string `yaml:"LogPath"`
	LogLevel string `yaml:"LogLevel"`
	Debug    bool   `yaml:"Debug"`
	Verbose  bool   `yaml:"Verbose"`
}

// LoadConfig loads the configuration from the YAML file. If the YAML file
// doesn't exist, it falls back to the policy registry settings, and finally
// to built-in defaults so the tools stay usable on an unmanaged machine.
func LoadConfig() (*Configuration, error) {
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		log.Printf("Configuration file does not exist: %s", ConfigPath)

		config, regErr := LoadConfigFromRegistry()
		if regErr == nil {
			log.Printf("Loaded configuration from policy registry settings")
			return config, nil
		}

		log.Printf("No policy registry settings found (%v); using defaults", regErr)
		config = GetDefaultConfig()
		if err := ensureDirectories(config); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(ConfigPath)
	if err != nil {
		log.Printf("Failed to read configuration file: %v", err)
		return nil, err
	}

	var config Configuration
	if err := yaml.Unmarshal(data, &config); err != nil {
		log.Printf("Failed to parse configuration file: %v", err)
		return nil, err
	}

	applyDefaults(&config)
	if err := ensureDirectories(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves the current configuration to the YAML file.
func SaveConfig(config *Configuration) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		log.Printf("Failed to serialize configuration: %v", err)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(ConfigPath), 0755); err != nil {
		log.Printf("Failed to create configuration directory: %v", err)
		return err
	}

	if err := os.WriteFile(ConfigPath, data, 0644); err != nil {
		log.Printf("Failed to write configuration file: %v", err)
		return err
	}

	return nil
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	// Use ProgramW6432 to force the 64-bit Program Files path
	programFiles := os.Getenv("ProgramW6432")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	return &Configuration{
		RepoURL:              "https://git.igp.example.com/it/igp-tools.git",
		Branch:               "main",
		TargetDir:            filepath.Join(programFiles, "IGPTools", "toolkit"),
		InstallPath:          filepath.Join(programFiles, "IGPTools"),
		UpdaterURL:           "",
		UpdaterSHA256:        "",
		ShutdownTime:         "22:00",
		TaskTimeLimitMinutes: 15,
		LogPath:              `C:\ProgramData\IGPTools\logs`,
		LogLevel:             "INFO",
		Debug:                false,
		Verbose:              false,
	}
}

// applyDefaults fills empty fields with the built-in defaults.
func applyDefaults(config *Configuration) {
	def := GetDefaultConfig()
	if config.RepoURL == "" {
		config.RepoURL = def.RepoURL
	}
	if config.Branch == "" {
		config.Branch = def.Branch
	}
	if config.TargetDir == "" {
		config.TargetDir = def.TargetDir
	}
	if config.InstallPath == "" {
		config.InstallPath = def.InstallPath
	}
	if config.ShutdownTime == "" {
		config.ShutdownTime = def.ShutdownTime
	}
	if config.TaskTimeLimitMinutes <= 0 {
		config.TaskTimeLimitMinutes = def.TaskTimeLimitMinutes
	}
	if config.LogPath == "" {
		config.LogPath = def.LogPath
	}
	if config.LogLevel == "" {
		config.LogLevel = def.LogLevel
	}
}

// ensureDirectories creates the directories the tools expect to exist.
func ensureDirectories(config *Configuration) error {
	for _, path := range []string{config.LogPath, filepath.Dir(ConfigPath)} {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %v", path, err)
		}
	}
	return nil
}

// LoadConfigFromRegistry loads configuration from the policy registry path.
// This serves as a fallback when the Config.yaml file doesn't exist.
func LoadConfigFromRegistry() (*Configuration, error) {
	config := GetDefaultConfig()

	if err := loadFromRegistryPath(PolicyRegistryPath, config); err != nil {
		return nil, fmt.Errorf("failed to load from policy registry path: %v", err)
	}

	log.Printf("Loaded policy configuration from registry path: %s", PolicyRegistryPath)

	applyDefaults(config)
	if err := ensureDirectories(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFromRegistryPath loads configuration values from a specific registry path.
func loadFromRegistryPath(registryPath string, config *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		return fmt.Errorf("failed to open policy registry key %s: %v", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "RepoURL", &config.RepoURL)
	loadStringFromRegistry(key, "Branch", &config.Branch)
	loadStringFromRegistry(key, "TargetDir", &config.TargetDir)
	loadStringFromRegistry(key, "InstallPath", &config.InstallPath)
	loadStringFromRegistry(key, "UpdaterURL", &config.UpdaterURL)
	loadStringFromRegistry(key, "UpdaterSHA256", &config.UpdaterSHA256)
	loadStringFromRegistry(key, "ShutdownTime", &config.ShutdownTime)
	loadStringFromRegistry(key, "LogPath", &config.LogPath)
	loadStringFromRegistry(key, "LogLevel", &config.LogLevel)

	loadIntFromRegistry(key, "TaskTimeLimitMinutes", &config.TaskTimeLimitMinutes)

	loadBoolFromRegistry(key, "Debug", &config.Debug)
	loadBoolFromRegistry(key, "Verbose", &config.Verbose)

	return nil
}

// loadStringFromRegistry loads a string value from registry if it exists.
func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && strings.TrimSpace(val) != "" {
		*target = strings.TrimSpace(val)
		log.Printf("Policy: Loaded %s = %s", valueName, *target)
	}
}

// loadBoolFromRegistry loads a boolean value from registry if it exists.
// Accepts various formats: "true"/"false", "1"/"0", DWORD 1/0.
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			log.Printf("Policy: Loaded %s = %t", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
		log.Printf("Policy: Loaded %s = %t", valueName, val != 0)
	}
}

// loadIntFromRegistry loads an integer value from registry if it exists.
func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			log.Printf("Policy: Loaded %s = %d", valueName, parsed)
			return
		}
	}

	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
		log.Printf("Policy: Loaded %s = %d", valueName, int(val))
	}
}
