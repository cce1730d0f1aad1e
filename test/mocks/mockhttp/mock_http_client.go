// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package mockhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// MockHttpClient implements policy.Transporter and http.RoundTripper so it can be plugged
// into both Azure SDK clients and plain http.Clients.
type MockHttpClient struct {
	mu          sync.Mutex
	expressions []*HttpExpression
	requests    []*http.Request
}

type RequestPredicate func(request *http.Request) bool
type RespondFn func(request *http.Request) (*http.Response, error)

type HttpExpression struct {
	http        *MockHttpClient
	predicateFn RequestPredicate
	responseFn  RespondFn
}

func NewMockHttpClient() *MockHttpClient {
	return &MockHttpClient{}
}

func (c *MockHttpClient) Do(request *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, request)
	expressions := c.expressions
	c.mu.Unlock()

	for i := len(expressions) - 1; i >= 0; i-- {
		if expressions[i].predicateFn(request) {
			return expressions[i].responseFn(request)
		}
	}

	panic(fmt.Sprintf("No mock found for request: '%s %s'", request.Method, request.URL))
}

func (c *MockHttpClient) RoundTrip(request *http.Request) (*http.Response, error) {
	return c.Do(request)
}

func (c *MockHttpClient) When(predicate RequestPredicate) *HttpExpression {
	expr := &HttpExpression{
		http:        c,
		predicateFn: predicate,
	}

	c.mu.Lock()
	c.expressions = append(c.expressions, expr)
	c.mu.Unlock()

	return expr
}

// Requests returns the requests received so far.
func (c *MockHttpClient) Requests() []*http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*http.Request{}, c.requests...)
}

func (e *HttpExpression) RespondFn(responseFn RespondFn) *MockHttpClient {
	e.responseFn = responseFn
	return e.http
}

// Respond replies with the JSON encoding of body.
func (e *HttpExpression) Respond(statusCode int, body any) *MockHttpClient {
	return e.RespondFn(func(request *http.Request) (*http.Response, error) {
		return CreateHttpResponseWithBody(request, statusCode, body)
	})
}

func (e *HttpExpression) SetError(err error) *MockHttpClient {
	return e.RespondFn(func(request *http.Request) (*http.Response, error) {
		return nil, err
	})
}

// CreateHttpResponseWithBody builds a response whose body is the JSON encoding of body.
// A nil body produces an empty response.
func CreateHttpResponseWithBody(request *http.Request, statusCode int, body any) (*http.Response, error) {
	var content []byte
	if body != nil {
		raw, ok := body.([]byte)
		if ok {
			content = raw
		} else {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			content = encoded
		}
	}

	return &http.Response{
		Request:       request,
		StatusCode:    statusCode,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewBuffer(content)),
		ContentLength: int64(len(content)),
	}, nil
}
