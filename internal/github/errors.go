package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	gh "github.com/google/go-github/v61/github"

	"github.com/sakif/access-git/internal/apperror"
	"github.com/sakif/access-git/internal/metrics"
)

// translateError turns whatever go-github returned into an upstream AppError.
//
// go-github reports failures through a handful of types:
//   - *ErrorResponse        any 4xx/5xx with a JSON body
//   - *RateLimitError       primary rate limit exhausted
//   - *AbuseRateLimitError  secondary ("abuse") rate limit
//
// Anything else is a transport failure (DNS, TLS, cancelled context) and has
// no status; it is reported with status 0 and the handler answers 502.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) {
		return apperror.Upstream(responseStatus(errResp.Response), errResp.Message, details(errResp.Errors)).WithCause(err)
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return apperror.Upstream(responseStatus(rateErr.Response), rateErr.Message, nil).WithCause(err)
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperror.Upstream(responseStatus(abuseErr.Response), abuseErr.Message, nil).WithCause(err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return apperror.Upstream(0, "GitHub API unreachable", nil).WithCause(err)
}

func responseStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func details(errs []gh.Error) []apperror.Detail {
	if len(errs) == 0 {
		return nil
	}
	out := make([]apperror.Detail, 0, len(errs))
	for _, e := range errs {
		out = append(out, apperror.Detail{
			Resource: e.Resource,
			Field:    e.Field,
			Code:     e.Code,
			Message:  e.Message,
		})
	}
	return out
}

// call runs one go-github request, records its metrics and translates its error.
func call[T any](op string, fn func() (T, *gh.Response, error)) (T, *gh.Response, error) {
	start := time.Now()
	v, resp, err := fn()
	metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		translated := translateError(err)
		outcome := "error"
		if apperror.IsUpstreamNotFound(translated) {
			outcome = "not_found"
		}
		metrics.UpstreamRequests.WithLabelValues(op, outcome).Inc()
		return v, resp, translated
	}

	metrics.UpstreamRequests.WithLabelValues(op, "ok").Inc()
	return v, resp, nil
}

// callNoBody is call for endpoints that only return a status (204 mutations).
func callNoBody(op string, fn func() (*gh.Response, error)) error {
	_, _, err := call(op, func() (struct{}, *gh.Response, error) {
		resp, err := fn()
		return struct{}{}, resp, err
	})
	return err
}

// perPageMax is GitHub's page size ceiling.
const perPageMax = 100

// collectAll walks every page of a list endpoint by following NextPage.
func collectAll[T any](op string, fetch func(opts gh.ListOptions) ([]T, *gh.Response, error)) ([]T, error) {
	var all []T
	opts := gh.ListOptions{PerPage: perPageMax}
	for {
		items, resp, err := call(op, func() ([]T, *gh.Response, error) {
			return fetch(opts)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// clampPerPage keeps a caller-supplied page size inside GitHub's limits.
func clampPerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	if perPage > perPageMax {
		return perPageMax
	}
	return perPage
}
