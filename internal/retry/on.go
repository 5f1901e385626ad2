package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// On classifies responses and transport errors as retriable. The condition
// names follow the Envoy retry-on vocabulary.
type On struct {
	server5xx      bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	statusCodes    []int
}

// NewDefaultRetryOn retries gateway errors, connection failures and the
// retriable 4xx set, but not arbitrary 5xx responses.
func NewDefaultRetryOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
	}
}

// NewRetryOnFromString parses a comma-separated condition list, e.g.
// "5xx,connect-failure,429".
func NewRetryOnFromString(s string) (*On, error) {
	o := &On{}
	for _, condition := range strings.Split(s, ",") {
		switch condition {
		case "5xx":
			o.server5xx = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(condition)
			if err != nil {
				return nil, xerrors.Errorf("invalid retry condition: %s", condition)
			}
			o.statusCodes = append(o.statusCodes, statusCode)
		}
	}
	return o, nil
}

func (o *On) CheckResponse(response *http.Response) bool {
	if o.server5xx && response.StatusCode >= 500 && response.StatusCode < 600 {
		return true
	}
	if o.gatewayError && response.StatusCode >= 502 && response.StatusCode < 505 {
		return true
	}
	if o.retriable4xx && response.StatusCode == http.StatusConflict {
		return true
	}

	for _, statusCode := range o.statusCodes {
		if statusCode == response.StatusCode {
			return true
		}
	}

	return false
}

func (o *On) CheckError(err error) bool {
	if !o.connectFailure && !o.server5xx {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	if errors.As(err, &terr) && terr.Temporary() {
		return true
	}
	// A dropped connection surfaces as EOF; treat it like a connect failure.
	return errors.Is(err, io.EOF)
}
