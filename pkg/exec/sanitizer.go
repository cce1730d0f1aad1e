// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package exec

import (
	"regexp"
	"strings"
)

type redactData struct {
	matchString   *regexp.Regexp
	replaceString string
}

const cRedacted = "<redacted>"

var regexpRedactRules = []redactData{
	{
		regexp.MustCompile(`"accessToken":(\s*)"[^"]*"`),
		`"accessToken":$1"` + cRedacted + `"`,
	},
	{
		regexp.MustCompile(`--username \S+`),
		"--username " + cRedacted,
	},
	{
		regexp.MustCompile(`--password \S+`),
		"--password " + cRedacted,
	},
	{
		regexp.MustCompile(`-backend-config=(access_key|sas_token|client_secret)=\S+`),
		"-backend-config=$1=" + cRedacted,
	},
	{
		regexp.MustCompile(`(ARM_CLIENT_SECRET|AZURE_CLIENT_SECRET)=\S+`),
		"$1=" + cRedacted,
	},
}

// RedactSensitiveArgs replaces every occurrence of the sensitive values in args.
func RedactSensitiveArgs(args []string, sensitiveDataMatch []string) []string {
	if len(sensitiveDataMatch) == 0 {
		return args
	}
	redactedArgs := make([]string, len(args))
	for i, arg := range args {
		redacted := arg
		for _, sensitiveData := range sensitiveDataMatch {
			if sensitiveData == "" {
				continue
			}
			redacted = strings.ReplaceAll(redacted, sensitiveData, cRedacted)
		}
		redactedArgs[i] = redacted
	}
	return redactedArgs
}

// RedactSensitiveData applies the well known redaction rules to msg.
func RedactSensitiveData(msg string) string {
	for _, rule := range regexpRedactRules {
		msg = rule.matchString.ReplaceAllString(msg, rule.replaceString)
	}
	return msg
}
