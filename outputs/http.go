package outputs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const maxDeliveryRetries = 3

// StatusError is returned when an endpoint answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("POST %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("POST %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	b.MaxElapsedTime = time.Minute
	return b
}

// poster sends JSON bodies, retrying rate limits, server errors and
// transport failures a bounded number of times.
type poster struct {
	client     *http.Client
	userAgent  string
	newBackOff func() backoff.BackOff
}

func newPoster(opts Options) poster {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return poster{client: client, userAgent: opts.UserAgent, newBackOff: defaultBackOff}
}

// postJSON marshals payload and POSTs it to url. When out is non-nil the
// response body is decoded into it.
func (p poster) postJSON(ctx context.Context, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.userAgent != "" {
			req.Header.Set("User-Agent", p.userAgent)
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
			if !retryable(resp.StatusCode) {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	return p.retry(ctx, url, operation)
}

// retry runs operation until it succeeds, returns a permanent error or the
// retry limit is reached.
func (p poster) retry(ctx context.Context, url string, operation backoff.Operation) error {
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), maxDeliveryRetries), ctx)
	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"url":   url,
			"error": err,
			"wait":  wait,
		}).Warn("Delivery failed, retrying")
	})
}
