package marsapi

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RetryPolicy controls retries of transient failures. It sits beneath the
// response hooks, so a 401 is never retried here.
type RetryPolicy struct {
	// Limit is the number of retries after the first attempt. Zero disables retries.
	Limit int

	// Methods lists the request methods eligible for retry.
	Methods []string

	// StatusCodes lists the response statuses that are retried.
	StatusCodes []int

	WaitMin time.Duration
	WaitMax time.Duration
}

// DefaultRetryPolicy retries idempotent requests on transport errors,
// timeouts, throttling and gateway errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Limit: 4,
		Methods: []string{
			http.MethodGet, http.MethodPut, http.MethodHead,
			http.MethodDelete, http.MethodOptions, http.MethodTrace,
		},
		StatusCodes: []int{
			http.StatusRequestTimeout,
			http.StatusRequestEntityTooLarge,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		WaitMin: 300 * time.Millisecond,
		WaitMax: 10 * time.Second,
	}
}

// RetriesMethod reports whether requests with method may be retried.
func (p RetryPolicy) RetriesMethod(method string) bool {
	return slices.Contains(p.Methods, method)
}

// RetriesStatus reports whether a response with code is retried.
func (p RetryPolicy) RetriesStatus(code int) bool {
	return slices.Contains(p.StatusCodes, code)
}

func (p RetryPolicy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return p.RetriesStatus(resp.StatusCode), nil
}

// retryTransport sends eligible methods through a retryablehttp client and
// everything else straight to base. Once attempts run out the last response
// is returned as is.
type retryTransport struct {
	policy RetryPolicy
	retry  http.RoundTripper
	base   http.RoundTripper
}

func newRetryTransport(base http.RoundTripper, policy RetryPolicy, logger *slog.Logger) http.RoundTripper {
	if policy.Limit <= 0 {
		return base
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: base,
		// The outer client follows redirects.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	rc.RetryMax = policy.Limit
	rc.RetryWaitMin = policy.WaitMin
	rc.RetryWaitMax = policy.WaitMax
	rc.CheckRetry = policy.checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if logger != nil {
		rc.Logger = logger
	}

	return &retryTransport{
		policy: policy,
		retry:  &retryablehttp.RoundTripper{Client: rc},
		base:   base,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.policy.RetriesMethod(req.Method) {
		return t.retry.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}
