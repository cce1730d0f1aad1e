// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package internal

// GlobalCommandOptions are the flags shared by every command.
type GlobalCommandOptions struct {
	// Cwd allows the user to override the current working directory, which is used when finding the project file.
	Cwd string
	// EnvironmentName is the environment selected with -e, or empty for the default environment.
	EnvironmentName string
	// OutputFormat is the requested output format (text or json).
	OutputFormat string
	// Query is a JMESPath query applied to json output.
	Query string
	// TraceLogFile is the path spans are written to. Tracing is disabled when empty.
	TraceLogFile string

	EnableDebugLogging bool

	// when true, interactive prompts should behave as if the user selected the default value.
	// if there is no default value the prompt returns an error.
	NoPrompt bool
}
