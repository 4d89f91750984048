package linkverify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/retry"
)

// probeResult is the outcome of checking one external URL.
type probeResult struct {
	Status  int
	OK      bool
	Reason  Reason
	Detail  string
	Retries int
	Checked time.Time // when the result was observed, earlier than now when cached
}

// prober issues rate-limited HEAD requests with retries on transient failures.
type prober struct {
	client    *http.Client
	limiter   *rate.Limiter
	policy    retry.Policy
	userAgent string
}

func newProber(ext config.ExternalConfig, client *http.Client) *prober {
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	} else {
		cp := *client
		client = &cp
	}
	client.Timeout = config.Duration(ext.Timeout, 10*time.Second)
	maxRedirects := ext.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if !ext.AllowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	limit := rate.Inf
	if ext.RateLimit > 0 {
		limit = rate.Limit(ext.RateLimit)
	}
	return &prober{
		client:    client,
		limiter:   rate.NewLimiter(limit, max(ext.Burst, 1)),
		policy:    retry.FromConfig(ext.Retry),
		userAgent: ext.UserAgent,
	}
}

// probe checks target. Network errors, 5xx and 429 are retried with the
// policy; other 4xx are permanent and returned immediately.
func (p *prober) probe(ctx context.Context, target string) probeResult {
	var res probeResult
	err := p.policy.Do(ctx, func(attempt int) (bool, error) {
		res.Retries = attempt
		if err := p.limiter.Wait(ctx); err != nil {
			return false, err
		}
		status, err := p.head(ctx, target)
		res.Status = status
		if err != nil {
			return errors.Retryable(err), err
		}
		switch {
		case status >= 200 && status < 300, isAuthError(status):
			return false, nil
		case status >= 300 && status < 400:
			return false, errors.NetworkError("redirect not followed").
				WithRetry(errors.RetryNever).WithContext("status", status).Build()
		case status == http.StatusTooManyRequests:
			return true, errors.NetworkError(http.StatusText(status)).RateLimit().WithContext("status", status).Build()
		case status >= 500:
			return true, errors.NetworkError(http.StatusText(status)).WithContext("status", status).Build()
		default:
			return false, errors.NetworkError(http.StatusText(status)).
				WithRetry(errors.RetryNever).WithContext("status", status).Build()
		}
	})

	switch {
	case err == nil:
		res.OK = true
	case res.Status >= 300 && res.Status < 400:
		res.Reason = ReasonRedirect
		res.Detail = fmt.Sprintf("HTTP %d", res.Status)
	case res.Status != 0:
		res.Reason = ReasonExternalStatus
		res.Detail = fmt.Sprintf("HTTP %d", res.Status)
	default:
		res.Reason = ReasonExternalError
		res.Detail = err.Error()
	}
	return res
}

func (p *prober) head(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryNetwork, "failed to create request").Build()
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, errors.WrapError(err, errors.CategoryNetwork, "request failed").Retryable().Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// isAuthError returns true for HTTP status codes that indicate
// authentication or authorization issues rather than broken links.
func isAuthError(statusCode int) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed:
		return true
	}
	return false
}
