// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

// HealthyStatus is the value of the "status" field reported by a healthy backend.
const HealthyStatus = "healthy"

var ErrUnhealthy = errors.New("service is not healthy")

// HttpDoer is satisfied by *http.Client.
type HttpDoer interface {
	Do(request *http.Request) (*http.Response, error)
}

// HealthChecker polls the health route of the web app.
type HealthChecker struct {
	client HttpDoer
	// InitialBackoff is doubled after every failed attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewHealthChecker(client HttpDoer) *HealthChecker {
	return &HealthChecker{
		client:         client,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// Check performs a single check. The service is healthy when it answers 200 with {"status": "healthy"}.
func (p *HealthChecker) Check(ctx context.Context, url string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	response, err := p.client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrUnhealthy, err)
	}

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnhealthy, url, response.StatusCode)
	}

	status := gjson.GetBytes(body, "status").String()
	if status != HealthyStatus {
		return fmt.Errorf("%w: %s reported status '%s'", ErrUnhealthy, url, status)
	}

	return nil
}

// Wait checks url until it is healthy or timeout elapses.
func (p *HealthChecker) Wait(ctx context.Context, url string, timeout time.Duration) error {
	backoff := retry.NewExponential(p.InitialBackoff)
	backoff = retry.WithCappedDuration(p.MaxBackoff, backoff)
	backoff = retry.WithMaxDuration(timeout, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.Check(ctx, url); err != nil {
			log.Printf("health check: %v", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", url, err)
	}

	return nil
}
