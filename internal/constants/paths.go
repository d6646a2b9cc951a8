package constants

// Log file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.mqomctl/logs/mqomctl.log
	CLILogFileName = "mqomctl.log"
)

// Configuration file names.
const (
	// ConfigFileName is the name of both the global and project config file.
	ConfigFileName = "config.yaml"

	// ProjectConfigDir is the project-local config directory.
	ProjectConfigDir = ".mqomctl"
)
