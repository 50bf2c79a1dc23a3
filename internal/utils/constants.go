package utils

// LoggerInitializationFailedMessageFormat reports a logger that could not be built.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes the fatal error logged when a run fails.
const ApplicationExecutionFailedMessage = "combine failed"

// VerboseFlagName is the persistent flag switching the logger to debug level.
const VerboseFlagName = "verbose"
