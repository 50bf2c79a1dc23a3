// Package config loads the optional .combine.yaml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tyemirov/combine/internal/tokenizer"
	"github.com/tyemirov/combine/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds run defaults. Unset values are empty strings or nil pointers so
// that a later source only overrides what it actually sets.
type ApplicationConfiguration struct {
	Root    string             `mapstructure:"root"`
	Output  string             `mapstructure:"output"`
	Decode  string             `mapstructure:"decode"`
	Summary *bool              `mapstructure:"summary"`
	Copy    *bool              `mapstructure:"copy"`
	Tokens  TokenConfiguration `mapstructure:"tokens"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration loads the global file from the home directory and then the local
// (or explicitly named) file, the latter overriding the former.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, mustExist := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, mustExist)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	return merged.Merge(localConfig), nil
}

// resolveLocalConfigPath returns the local configuration path and whether it was named explicitly.
func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, bool) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, true
		}
		return filepath.Join(workingDirectory, explicitPath), true
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), false
}

func loadConfigurationFromPath(path string, mustExist bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !mustExist {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Summary = cloneBool(config.Summary)
	result.Copy = cloneBool(config.Copy)
	if override.Root != "" {
		result.Root = override.Root
	}
	if override.Output != "" {
		result.Output = override.Output
	}
	if override.Decode != "" {
		result.Decode = override.Decode
	}
	if override.Summary != nil {
		result.Summary = cloneBool(override.Summary)
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	result.Enabled = cloneBool(config.Enabled)
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

// RootOrDefault returns the configured root or the current directory.
func (config ApplicationConfiguration) RootOrDefault() string {
	if config.Root == "" {
		return utils.DefaultRootPath
	}
	return config.Root
}

// OutputOrDefault returns the configured output path or the default output file name.
func (config ApplicationConfiguration) OutputOrDefault() string {
	if config.Output == "" {
		return utils.DefaultOutputFileName
	}
	return config.Output
}

// SummaryEnabled reports whether the console summary is printed; it is on unless disabled.
func (config ApplicationConfiguration) SummaryEnabled() bool {
	return boolOrDefault(config.Summary, true)
}

// CopyEnabled reports whether the output is copied to the clipboard.
func (config ApplicationConfiguration) CopyEnabled() bool {
	return boolOrDefault(config.Copy, false)
}

// TokensEnabled reports whether token counting is requested.
func (config ApplicationConfiguration) TokensEnabled() bool {
	return boolOrDefault(config.Tokens.Enabled, false)
}

// TokenModelOrDefault returns the configured tokenizer model or tokenizer.DefaultModel.
func (config ApplicationConfiguration) TokenModelOrDefault() string {
	if config.Tokens.Model == "" {
		return tokenizer.DefaultModel
	}
	return config.Tokens.Model
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
