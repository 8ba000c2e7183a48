package utils

// LoggerInitializationFailedMessageFormat reports a failed logger build.
const LoggerInitializationFailedMessageFormat = "logger initialization failed: %w"

// ApplicationExecutionFailedMessage prefixes a fatal CLI failure.
const ApplicationExecutionFailedMessage = "application execution failed"

// ConfigFileName is the name of the local configuration file.
const ConfigFileName = ".treels.yaml"

// GlobalConfigDirectoryName is the directory under the user home holding the
// global configuration file.
const GlobalConfigDirectoryName = ".config/treels"

// GlobalConfigFileName is the name of the global configuration file.
const GlobalConfigFileName = "config.yaml"
