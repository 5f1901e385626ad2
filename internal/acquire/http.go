package acquire

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"

	"pagematch/internal/retry"
)

type HTTPConfig struct {
	Timeout     time.Duration
	MaxBodySize int64

	// Bounded retry policy for transient upstream failures.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	MaxRetryCount  uint
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:        30 * time.Second,
		MaxBodySize:    64 << 20,
		RetryBaseDelay: 100 * time.Millisecond,
		RetryMaxDelay:  2 * time.Second,
		MaxRetryCount:  3,
	}
}

type httpAcquirer struct {
	client      *http.Client
	maxBodySize int64
}

// NewHTTPAcquirer downloads reference images over HTTP with retry on
// transient failures.
func NewHTTPAcquirer(config HTTPConfig) Acquirer {
	return &httpAcquirer{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &retry.Transport{
				Base:          http.DefaultTransport,
				RetryStrategy: retry.NewExponentialBackOff(config.RetryBaseDelay, config.RetryMaxDelay, config.MaxRetryCount, nil),
				RetryOn:       retry.NewDefaultRetryOn(),
			},
		},
		maxBodySize: config.MaxBodySize,
	}
}

func (a *httpAcquirer) Acquire(ctx context.Context, source string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request for %s: %w", source, err)
	}

	response, err := a.client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s: %w", source, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("failed to download %s: unexpected status %d", source, response.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, a.maxBodySize+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", source, err)
	}
	if int64(len(data)) > a.maxBodySize {
		return nil, xerrors.Errorf("failed to read %s: body exceeds %d bytes", source, a.maxBodySize)
	}

	return data, nil
}
