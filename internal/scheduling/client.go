// Package scheduling provisions booking widgets in the third-party
// scheduling system a provider connected during onboarding.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/care-booking/config"
)

const defaultTimeout = 5 * time.Second

var ErrInvalidCompany = errors.New("invalid company id")

// Provisioner returns the public booking widget URL for a company.
type Provisioner interface {
	ProvisionWidget(ctx context.Context, companyID string) (string, error)
}

// Client talks to the provisioning API at baseURL. Without a baseURL it
// derives the hosted SimplyBook widget address and makes no network call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zerolog.Logger
}

func NewClient(cfg config.SchedulingConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "scheduling",
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
		logger: logger,
	}
}

// WidgetURL is the hosted widget address for a SimplyBook company.
func WidgetURL(companyID string) string {
	return fmt.Sprintf("https://%s.simplybook.me/v2/", companyID)
}

type provisionResponse struct {
	WidgetURL string `json:"widget_url"`
}

func (c *Client) ProvisionWidget(ctx context.Context, companyID string) (string, error) {
	companyID = strings.ToLower(strings.TrimSpace(companyID))
	if companyID == "" || strings.ContainsAny(companyID, "/.:?#@ ") {
		return "", ErrInvalidCompany
	}
	if c.baseURL == "" {
		return WidgetURL(companyID), nil
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.provision(ctx, companyID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to provision widget for %s: %w", companyID, err)
	}
	return out.(string), nil
}

func (c *Client) provision(ctx context.Context, companyID string) (string, error) {
	body, err := json.Marshal(map[string]string{"company_id": companyID})
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/companies/" + url.PathEscape(companyID) + "/widget"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provisioning returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out provisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provisioning response: %w", err)
	}
	if out.WidgetURL == "" {
		return WidgetURL(companyID), nil
	}
	return out.WidgetURL, nil
}
