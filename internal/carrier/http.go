package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weddingringring/wrr-sub001/internal/config"
	"github.com/weddingringring/wrr-sub001/pkg/circuitbreaker"
	"github.com/weddingringring/wrr-sub001/pkg/metrics"
)

const apiVersion = "2010-04-01"

// httpClient talks to a Twilio-compatible REST API with basic auth and
// form-encoded writes.
type httpClient struct {
	accountSID string
	authToken  string
	baseURL    string
	bundleSID  string
	http       *http.Client
	cb         *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

func NewHTTPClient(cfg config.CarrierConfig, m *metrics.Metrics) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		// The carrier blocks call setup on webhook registration, so
		// requests must answer within a few seconds.
		timeout = 5 * time.Second
	}
	return &httpClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		bundleSID:  cfg.BundleSID,
		http:       &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "carrier-api",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		metrics: m,
	}
}

type availableNumbersResponse struct {
	AvailablePhoneNumbers []AvailableNumber `json:"available_phone_numbers"`
}

func (c *httpClient) SearchAvailable(ctx context.Context, countryCode, areaCodeHint string) ([]AvailableNumber, error) {
	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/AvailablePhoneNumbers/%s/Local.json",
		c.baseURL, apiVersion, c.accountSID, countryCode)

	params := url.Values{}
	params.Set("VoiceEnabled", "true")
	if areaCodeHint != "" {
		params.Set("AreaCode", areaCodeHint)
	}

	var out availableNumbersResponse
	err := c.do(ctx, "search", http.MethodGet, endpoint+"?"+params.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}
	if len(out.AvailablePhoneNumbers) == 0 {
		return nil, ErrNoInventory
	}
	return out.AvailablePhoneNumbers, nil
}

func (c *httpClient) Purchase(ctx context.Context, number string, callbacks CallbackConfig) (*PurchasedNumber, error) {
	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/IncomingPhoneNumbers.json",
		c.baseURL, apiVersion, c.accountSID)

	form := url.Values{}
	form.Set("PhoneNumber", number)
	form.Set("VoiceUrl", callbacks.VoiceURL)
	form.Set("VoiceMethod", http.MethodPost)
	if callbacks.StatusCallbackURL != "" {
		form.Set("StatusCallback", callbacks.StatusCallbackURL)
	}
	if c.bundleSID != "" {
		form.Set("BundleSid", c.bundleSID)
	}

	var out PurchasedNumber
	if err := c.do(ctx, "purchase", http.MethodPost, endpoint, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Release(ctx context.Context, sid string) error {
	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/IncomingPhoneNumbers/%s.json",
		c.baseURL, apiVersion, c.accountSID, sid)

	return c.do(ctx, "release", http.MethodDelete, endpoint, nil, nil)
}

func (c *httpClient) FetchRecording(ctx context.Context, mediaURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build recording request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	timer := c.observe("fetch_recording")
	resp, err := c.http.Do(req)
	timer.ObserveDuration()
	if err != nil {
		c.count("fetch_recording", "error")
		return nil, "", &TransientError{Op: "fetch_recording", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.count("fetch_recording", fmt.Sprintf("%d", resp.StatusCode))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, "", &TransientError{Op: "fetch_recording", Err: fmt.Errorf("carrier returned %d", resp.StatusCode)}
		}
		return nil, "", fmt.Errorf("carrier returned %d fetching recording", resp.StatusCode)
	}
	c.count("fetch_recording", "ok")
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// do executes one carrier API call through the circuit breaker and
// classifies the response into the error taxonomy.
func (c *httpClient) do(ctx context.Context, op, method, endpoint string, form url.Values, out interface{}) error {
	return c.cb.Execute(func() error {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return fmt.Errorf("failed to build carrier request: %w", err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		timer := c.observe(op)
		resp, err := c.http.Do(req)
		timer.ObserveDuration()
		if err != nil {
			c.count(op, "error")
			return &TransientError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		c.count(op, fmt.Sprintf("%d", resp.StatusCode))

		switch {
		case resp.StatusCode == http.StatusNotFound && op == "release":
			// Already released carrier-side; success for our purposes.
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return &TransientError{Op: op, Err: fmt.Errorf("carrier returned %d", resp.StatusCode)}
		case resp.StatusCode >= 400:
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if op == "purchase" {
				return fmt.Errorf("%w: %d %s", ErrPurchaseRejected, resp.StatusCode, strings.TrimSpace(string(payload)))
			}
			return fmt.Errorf("carrier %s failed: %d %s", op, resp.StatusCode, strings.TrimSpace(string(payload)))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode carrier response: %w", err)
			}
		}
		return nil
	})
}

func (c *httpClient) observe(op string) *prometheus.Timer {
	if c.metrics == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(c.metrics.CarrierLatency.WithLabelValues(op))
}

func (c *httpClient) count(op, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CarrierRequests.WithLabelValues(op, status).Inc()
}
