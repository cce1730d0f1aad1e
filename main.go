// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	azcorelog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
	"github.com/mattn/go-colorable"
	"github.com/spf13/pflag"
	"github.com/tensora/tcinfra/cmd"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/exec"
	"github.com/tensora/tcinfra/pkg/output"
)

func main() {
	ctx := context.Background()

	restoreColorMode := colorable.EnableColorsStdout(nil)
	defer restoreColorMode()

	output.DisableColorsWhenRedirected()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if isDebugEnabled() {
		azcorelog.SetListener(func(event azcorelog.Event, msg string) {
			log.Printf("%s: %s\n", event, exec.RedactSensitiveData(msg))
		})
	} else {
		log.SetOutput(io.Discard)
	}

	rootCmd := cmd.NewRootCmd()
	rootCmd.SetOut(colorable.NewColorableStdout())

	cmdErr := rootCmd.ExecuteContext(ctx)
	if cmdErr != nil {
		printError(cmdErr)
		os.Exit(1)
	}
}

func printError(err error) {
	stderr := colorable.NewColorableStderr()
	fmt.Fprintf(stderr, "\n%s %s\n", output.WithErrorFormat("ERROR:"), err.Error())

	var suggestion *internal.ErrorWithSuggestion
	if errors.As(err, &suggestion) {
		fmt.Fprintf(stderr, "%s %s\n", output.WithHighLightFormat("Suggestion:"), suggestion.Suggestion)
	}

	var traceErr *internal.ErrorWithTraceId
	if errors.As(err, &traceErr) {
		fmt.Fprintf(stderr, "%s\n", output.WithGrayFormat("TraceID: %s", traceErr.TraceId))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !isDebugEnabled() {
		fmt.Fprintf(stderr, "%s\n", output.WithGrayFormat("Run again with --debug for the full command log."))
	}
}

// isDebugEnabled looks for --debug before cobra parses the command line, so that logging is configured first.
func isDebugEnabled() bool {
	if debug, err := strconv.ParseBool(os.Getenv("TCINFRA_DEBUG")); err == nil && debug {
		return true
	}

	debug := false
	help := false
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)

	// the command line also carries flags of the subcommand that this set does not define
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.BoolVar(&debug, "debug", false, "")

	// pflag returns ErrHelp for --help unless the flag is defined
	flags.BoolVarP(&help, "help", "h", false, "")

	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Printf("could not parse flags: %v", err)
	}

	return debug
}
