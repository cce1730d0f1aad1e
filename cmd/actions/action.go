// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package actions contains the application logic that handles tcinfra CLI commands.
package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/tensora/tcinfra/pkg/output"
)

// ActionFunc is an Action implementation for regular functions.
type ActionFunc func(context.Context) (*ActionResult, error)

// Run implements the Action interface
func (a ActionFunc) Run(ctx context.Context) (*ActionResult, error) {
	return a(ctx)
}

// Define a message as the completion of an Action.
type ResultMessage struct {
	Header   string
	FollowUp string
}

// Define the Action outputs.
type ActionResult struct {
	Message *ResultMessage
}

// Action is the representation of the application logic of a CLI command.
type Action interface {
	// Run executes the CLI command.
	Run(ctx context.Context) (*ActionResult, error)
}

// ShowActionResults prints the success message of an action. Errors are printed by main.
func ShowActionResults(writer io.Writer, actionResult *ActionResult) {
	if actionResult == nil || actionResult.Message == nil {
		return
	}

	fmt.Fprintf(writer, "\n%s %s\n", output.WithSuccessFormat("SUCCESS:"), actionResult.Message.Header)
	if actionResult.Message.FollowUp != "" {
		fmt.Fprintln(writer, actionResult.Message.FollowUp)
	}
}
