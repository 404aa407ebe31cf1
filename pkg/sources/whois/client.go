// Package whois runs WHOIS queries and captures their raw text.
// Query failures are reported in the returned RawResponse, never as errors.
package whois

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	likexian "github.com/likexian/whois"
	"golang.org/x/time/rate"

	"github.com/wingedpig/ipowners/pkg/model"
	"github.com/wingedpig/ipowners/pkg/util/workers"
)

const (
	// DefaultTimeout bounds a single query
	DefaultTimeout = 100 * time.Second
	// DefaultBinary is the whois executable looked up on PATH
	DefaultBinary = "whois"

	// waitDelay bounds pipe draining after the process is killed
	waitDelay = 2 * time.Second
)

// Querier fetches the raw WHOIS text for one target
type Querier interface {
	Query(ctx context.Context, target model.Target) model.RawResponse
}

// CommandClient queries WHOIS by running an external whois binary
type CommandClient struct {
	binary  string
	timeout time.Duration
}

// NewCommandClient creates a client for the given binary and per-query timeout
func NewCommandClient(binary string, timeout time.Duration) *CommandClient {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandClient{binary: binary, timeout: timeout}
}

// Query runs the binary with the target literal and captures stdout and stderr together.
// Output produced before a timeout or failing exit is kept.
func (c *CommandClient) Query(ctx context.Context, target model.Target) model.RawResponse {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, target.Value)
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()

	resp := model.RawResponse{
		Target:  target,
		Text:    string(out),
		Status:  model.StatusOK,
		Elapsed: time.Since(start),
	}

	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		resp.Status = model.StatusTimeout
		resp.Err = fmt.Errorf("%w after %s: %s", model.ErrQueryTimeout, c.timeout, target.Value)
	case err != nil:
		resp.Status = model.StatusFailed
		resp.Err = fmt.Errorf("%w: %s: %v", model.ErrQueryFailed, target.Value, err)
	}

	return resp
}

// LibraryClient queries WHOIS in-process over port 43, following referrals
type LibraryClient struct {
	lookup  func(target string) (string, error)
	timeout time.Duration
}

// NewLibraryClient creates an in-process client with the given per-query timeout
func NewLibraryClient(timeout time.Duration) *LibraryClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := likexian.NewClient()
	client.SetTimeout(timeout)

	return &LibraryClient{
		lookup: func(target string) (string, error) {
			return client.Whois(target)
		},
		timeout: timeout,
	}
}

// Query performs the lookup, giving up once the timeout or ctx expires
func (l *LibraryClient) Query(ctx context.Context, target model.Target) model.RawResponse {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := l.lookup(target.Value)
		done <- result{text: text, err: err}
	}()

	resp := model.RawResponse{Target: target, Status: model.StatusOK}

	select {
	case r := <-done:
		resp.Text = r.text
		if r.err != nil {
			resp.Status = model.StatusFailed
			resp.Err = fmt.Errorf("%w: %s: %v", model.ErrQueryFailed, target.Value, r.err)
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			resp.Status = model.StatusTimeout
			resp.Err = fmt.Errorf("%w after %s: %s", model.ErrQueryTimeout, l.timeout, target.Value)
		} else {
			resp.Status = model.StatusFailed
			resp.Err = fmt.Errorf("%w: %s: %v", model.ErrQueryFailed, target.Value, ctx.Err())
		}
	}

	resp.Elapsed = time.Since(start)
	return resp
}

// ClientOptions configures rate limiting and retries around a backend
type ClientOptions struct {
	RateLimit  float64       // Queries per second, 0 = unlimited
	Retries    int           // Extra attempts after an unusable response
	RetryDelay time.Duration // First backoff delay, default 1s
}

// Client wraps a backend with rate limiting and retry
type Client struct {
	backend Querier
	limiter *rate.Limiter
	retry   workers.RetryConfig
}

// NewClient creates a rate-limited, retrying client around backend
func NewClient(backend Querier, opts ClientOptions) *Client {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1)
	}

	retry := workers.DefaultRetryConfig()
	retry.MaxAttempts = opts.Retries + 1
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if opts.RetryDelay > 0 {
		retry.InitialDelay = opts.RetryDelay
	}

	return &Client{
		backend: backend,
		limiter: limiter,
		retry:   retry,
	}
}

// Query asks the backend, retrying timeouts and empty responses.
// The last response is returned whether or not it is usable.
func (c *Client) Query(ctx context.Context, target model.Target) model.RawResponse {
	resp := model.RawResponse{Target: target, Status: model.StatusFailed}

	err := workers.RateLimitedRetry(ctx, c.limiter, c.retry, func() error {
		resp = c.backend.Query(ctx, target)
		if resp.Usable() {
			return nil
		}
		if resp.Err != nil {
			return resp.Err
		}
		return fmt.Errorf("%w: empty response for %s", model.ErrQueryFailed, target.Value)
	})

	if err != nil && resp.Err == nil && !resp.Usable() {
		resp.Err = err
	}
	return resp
}
