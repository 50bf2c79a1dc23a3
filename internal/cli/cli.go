// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/combine/internal/concat"
	"github.com/tyemirov/combine/internal/config"
	"github.com/tyemirov/combine/internal/output"
	"github.com/tyemirov/combine/internal/services/clipboard"
	"github.com/tyemirov/combine/internal/textdecode"
	"github.com/tyemirov/combine/internal/tokenizer"
	"github.com/tyemirov/combine/internal/utils"
)

const (
	outputFlagName       = "output"
	outputFlagShorthand  = "o"
	decodeFlagName       = "decode"
	summaryFlagName      = "summary"
	copyFlagName         = "copy"
	tokensFlagName       = "tokens"
	modelFlagName        = "model"
	configFlagName       = "config"
	versionFlagName      = "version"
	globalFlagName       = "global"
	forceFlagName        = "force"
	versionTemplate      = "combine version: %s\n"
	rootUse              = "combine [root]"
	rootShortDescription = "concatenate a source tree into one text file"
	rootLongDescription  = `combine walks a directory tree and writes every included file into a single text file.
Each file is preceded by a header line "# ==== <relative/path> ====".
Dependency, build, cache and VCS directories (node_modules, venv, env, __pycache__, .git, .next,
dist, build, packages, .turbo, .cache) are never entered, and files ending in .json, .pdf or .txt
are skipped. Defaults come from .combine.yaml files; flags override them.`
	rootUsageExample = `  # Combine the current directory into all_code_combined.txt
  combine

  # Combine ./service into a named file and copy it to the clipboard
  combine ./service -o service.txt --copy

  # Report a token estimate for an older model
  combine --tokens --model gpt-3.5-turbo`
	initUse              = "init"
	initShortDescription = "write a default .combine.yaml"
	initLongDescription  = `Write a default configuration file into the working directory, or into ~/.combine with --global.
An existing file is only replaced with --force.`

	outputFlagDescription  = "output file, created or truncated"
	decodeFlagDescription  = "handling of invalid UTF-8: ignore drops bytes, replace substitutes U+FFFD"
	summaryFlagDescription = "print a summary line after the run"
	copyFlagDescription    = "copy the combined output to the system clipboard"
	tokensFlagDescription  = "estimate token count of the combined output"
	modelFlagDescription   = "tokenizer model to use for token counting"
	configFlagDescription  = "configuration file replacing the local .combine.yaml"
	verboseFlagDescription = "log every visited file"
	versionFlagDescription = "display application version"
	globalFlagDescription  = "write the global configuration under the home directory"
	forceFlagDescription   = "overwrite an existing configuration file"

	workingDirectoryErrorFormat  = "unable to determine working directory: %w"
	loadConfigurationErrorFormat = "load configuration: %w"
	tokenizerErrorFormat         = "prepare tokenizer: %w"
	renderSummaryErrorFormat     = "print summary: %w"
	copyOutputErrorFormat        = "copy output %s: %w"
	configurationWrittenFormat   = "Configuration written to %s\n"
)

// environment carries the collaborators a command run depends on.
type environment struct {
	logger           *zap.Logger
	logLevel         zap.AtomicLevel
	stdout           io.Writer
	copier           clipboard.Copier
	newCounter       func(tokenizer.Config) (tokenizer.Counter, string, error)
	workingDirectory string
}

// Execute runs the combine application with process arguments.
func Execute(logger *zap.Logger, logLevel zap.AtomicLevel) error {
	rootCommand := createRootCommand(environment{
		logger:     logger,
		logLevel:   logLevel,
		stdout:     os.Stdout,
		copier:     clipboard.NewService(),
		newCounter: tokenizer.NewCounter,
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// runOptions captures the flag values of the root command.
type runOptions struct {
	outputPath string
	decode     string
	summary    bool
	copy       bool
	tokens     bool
	model      string
	configPath string
}

// createRootCommand builds the root Cobra command.
func createRootCommand(env environment) *cobra.Command {
	var options runOptions
	var showVersion bool
	var verbose bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if verbose {
				env.logLevel.SetLevel(zap.DebugLevel)
			}
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, printError := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return printError
			}
			return runCombine(command, arguments, options, env)
		},
	}
	rootCommand.SetOut(env.stdout)

	flags := rootCommand.Flags()
	flags.StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, utils.DefaultOutputFileName, outputFlagDescription)
	flags.StringVar(&options.decode, decodeFlagName, string(textdecode.DefaultPolicy), decodeFlagDescription)
	registerBooleanFlag(flags, &options.summary, summaryFlagName, true, summaryFlagDescription)
	registerBooleanFlag(flags, &options.copy, copyFlagName, false, copyFlagDescription)
	registerBooleanFlag(flags, &options.tokens, tokensFlagName, false, tokensFlagDescription)
	flags.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	flags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flags.BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&verbose, utils.VerboseFlagName, false, verboseFlagDescription)

	rootCommand.AddCommand(createInitCommand(env))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(env environment) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: env.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, printError := fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, path)
			return printError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// runCombine resolves flags over configuration over defaults and performs one run.
func runCombine(command *cobra.Command, arguments []string, options runOptions, env environment) error {
	logger := env.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workingDirectory := env.workingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	fileConfiguration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if loadError != nil {
		return fmt.Errorf(loadConfigurationErrorFormat, loadError)
	}
	settings := resolveSettings(command, arguments, options, fileConfiguration)
	settings.root = resolveAgainst(workingDirectory, settings.root)
	settings.outputPath = resolveAgainst(workingDirectory, settings.outputPath)

	policy, policyError := textdecode.ParsePolicy(settings.decode)
	if policyError != nil {
		return policyError
	}

	var tokenCounter tokenizer.Counter
	var tokenModel string
	if settings.tokens {
		newCounter := env.newCounter
		if newCounter == nil {
			newCounter = tokenizer.NewCounter
		}
		createdCounter, resolvedModel, counterError := newCounter(tokenizer.Config{Model: settings.model})
		if counterError != nil {
			return fmt.Errorf(tokenizerErrorFormat, counterError)
		}
		tokenCounter = createdCounter
		tokenModel = resolvedModel
	}

	var mirror *bytes.Buffer
	runConfiguration := concat.Options{
		Root:         settings.root,
		OutputPath:   settings.outputPath,
		Policy:       policy,
		TokenCounter: tokenCounter,
		TokenModel:   tokenModel,
		Logger:       logger,
	}
	if settings.copy {
		mirror = &bytes.Buffer{}
		runConfiguration.Mirror = mirror
	}

	summary, runError := concat.Run(runConfiguration)
	if runError != nil {
		return runError
	}

	if settings.summary {
		renderer := output.NewConsoleRenderer(command.OutOrStdout())
		if renderError := renderer.RenderSummary(summary); renderError != nil {
			return fmt.Errorf(renderSummaryErrorFormat, renderError)
		}
	}
	if mirror != nil {
		copier := env.copier
		if copier == nil {
			copier = clipboard.NewService()
		}
		if copyError := copier.Copy(mirror.String()); copyError != nil {
			return fmt.Errorf(copyOutputErrorFormat, summary.OutputPath, copyError)
		}
		logger.Debug("copied output to clipboard", zap.Int("bytes", mirror.Len()))
	}
	return nil
}
