// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// WithLinkFormat creates string with hyperlink-looking color
func WithLinkFormat(link string, a ...any) string {
	return color.HiCyanString(link, a...)
}

// WithHighLightFormat creates string with highlight-looking color
func WithHighLightFormat(text string, a ...any) string {
	return color.CyanString(text, a...)
}

func WithErrorFormat(text string, a ...any) string {
	return color.RedString(text, a...)
}

func WithWarningFormat(text string, a ...any) string {
	return color.YellowString(text, a...)
}

func WithSuccessFormat(text string, a ...any) string {
	return color.GreenString(text, a...)
}

func WithGrayFormat(text string, a ...any) string {
	return color.HiBlackString(text, a...)
}

// WithBackticks wraps text with the backtick (`) character.
func WithBackticks(text string) string {
	return "`" + text + "`"
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DisableColorsWhenRedirected turns off color output when stdout is not a terminal or NO_COLOR is set.
func DisableColorsWhenRedirected() {
	if _, has := os.LookupEnv("NO_COLOR"); has || !IsTerminal() {
		color.NoColor = true
	}
}
