// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"go.opentelemetry.io/otel/trace"
)

// See https://github.com/Azure/azure-resource-manager-rpc/blob/master/v1.0/common-api-details.md#client-request-headers
const cMsCorrelationIdHeader = "x-ms-correlation-request-id"

const cUserAgentHeader = "User-Agent"

type noOpPolicy struct{}

func (p *noOpPolicy) Do(req *policy.Request) (*http.Response, error) {
	return req.Next()
}

type headerPolicy struct {
	header string
	value  string
}

func (p *headerPolicy) Do(req *policy.Request) (*http.Response, error) {
	req.Raw().Header.Set(p.header, p.value)
	return req.Next()
}

type userAgentPolicy struct {
	userAgent string
}

// Prepends the tool user agent to the SDK user agent.
func (p *userAgentPolicy) Do(req *policy.Request) (*http.Response, error) {
	rawRequest := req.Raw()
	if existing := rawRequest.Header.Get(cUserAgentHeader); existing != "" {
		rawRequest.Header.Set(cUserAgentHeader, fmt.Sprintf("%s %s", p.userAgent, existing))
	} else {
		rawRequest.Header.Set(cUserAgentHeader, p.userAgent)
	}

	return req.Next()
}

// NewUserAgentPolicy creates a policy that adds userAgent to every request.
func NewUserAgentPolicy(userAgent string) policy.Policy {
	if userAgent == "" {
		return &noOpPolicy{}
	}

	return &userAgentPolicy{userAgent: userAgent}
}

// NewMsCorrelationPolicy creates a policy that sets Microsoft correlation ID headers on HTTP requests.
//
// Correlation IDs are taken from the existing trace context. If no trace context exists, then this policy is a no-op.
func NewMsCorrelationPolicy(ctx context.Context) policy.Policy {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return &noOpPolicy{}
	}

	return &headerPolicy{
		header: cMsCorrelationIdHeader,
		value:  spanCtx.TraceID().String(),
	}
}
