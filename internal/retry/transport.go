package retry

import (
	"io"
	"net/http"
	"time"
)

// Transport is a RoundTripper that retries per the configured strategy and
// condition set. The zero value never retries.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	for attempt := uint(0); ; attempt++ {
		response, err := t.base().RoundTrip(request)

		sleep, exceeded := t.retryStrategy().Sleep(attempt)
		if exceeded || t.RetryOn == nil {
			return response, err
		}

		if err != nil {
			if !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			// Drain so the connection can be reused by the next attempt.
			_, _ = io.Copy(io.Discard, response.Body)
			_ = response.Body.Close()
		}

		if request.GetBody != nil {
			body, err := request.GetBody()
			if err != nil {
				return nil, err
			}
			request.Body = body
		}

		timer := time.NewTimer(sleep)
		select {
		case <-request.Context().Done():
			timer.Stop()
			return nil, request.Context().Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
