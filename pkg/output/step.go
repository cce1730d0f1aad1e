// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"fmt"
	"io"
	"time"
)

// StepStatus is the outcome of a pipeline step or verification check.
type StepStatus string

const (
	StepDone    StepStatus = "Done"
	StepFailed  StepStatus = "Failed"
	StepSkipped StepStatus = "Skipped"
)

// PrintStepStart writes the "  (-) name" progress line.
func PrintStepStart(writer io.Writer, name string) {
	fmt.Fprintf(writer, "  %s %s\n", WithGrayFormat("(-)"), name)
}

// PrintStepResult writes the final line of a step with its duration.
func PrintStepResult(writer io.Writer, name string, status StepStatus, elapsed time.Duration) {
	var marker string
	switch status {
	case StepDone:
		marker = WithSuccessFormat("(✓) Done:")
	case StepFailed:
		marker = WithErrorFormat("(x) Failed:")
	default:
		marker = WithWarningFormat("(!) Skipped:")
	}

	fmt.Fprintf(writer, "  %s %s %s\n", marker, name, WithGrayFormat("(%s)", elapsed.Round(time.Millisecond)))
}
