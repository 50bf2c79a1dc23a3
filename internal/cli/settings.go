package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tyemirov/combine/internal/config"
)

// runSettings is the effective configuration of one run.
type runSettings struct {
	root       string
	outputPath string
	decode     string
	summary    bool
	copy       bool
	tokens     bool
	model      string
}

// resolveSettings applies precedence: an explicitly set flag or positional root wins, then the
// merged configuration files, then built-in defaults.
func resolveSettings(command *cobra.Command, arguments []string, options runOptions, fileConfiguration config.ApplicationConfiguration) runSettings {
	flags := command.Flags()
	settings := runSettings{
		root:       fileConfiguration.RootOrDefault(),
		outputPath: fileConfiguration.OutputOrDefault(),
		decode:     fileConfiguration.Decode,
		summary:    fileConfiguration.SummaryEnabled(),
		copy:       fileConfiguration.CopyEnabled(),
		tokens:     fileConfiguration.TokensEnabled(),
		model:      fileConfiguration.TokenModelOrDefault(),
	}
	if len(arguments) > 0 {
		settings.root = arguments[0]
	}
	if flags.Changed(outputFlagName) {
		settings.outputPath = options.outputPath
	}
	if flags.Changed(decodeFlagName) {
		settings.decode = options.decode
	}
	if flags.Changed(summaryFlagName) {
		settings.summary = options.summary
	}
	if flags.Changed(copyFlagName) {
		settings.copy = options.copy
	}
	if flags.Changed(tokensFlagName) {
		settings.tokens = options.tokens
	}
	if flags.Changed(modelFlagName) {
		settings.model = options.model
	}
	return settings
}

// resolveAgainst anchors a relative path at the working directory so that injected working
// directories behave like the process one.
func resolveAgainst(workingDirectory string, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDirectory, path)
}
