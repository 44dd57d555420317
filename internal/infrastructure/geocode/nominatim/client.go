package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/infrastructure/resilience"
)

// Client geocodes postal addresses through a Nominatim instance. Public
// Nominatim asks for a contact in the User-Agent, so the agent string is
// part of the configuration.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, userAgent string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = "locus/1.0"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   executor,
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, domain.WrapError(domain.ErrValidation, "geocode",
			errors.New("empty address"))
	}

	var coords domain.Coordinates
	call := func(ctx context.Context) error {
		var err error
		coords, err = c.search(ctx, address)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "nominatim.search", call, classifyGeocodeError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Coordinates{}, err
	}
	return coords, nil
}

func (c *Client) search(ctx context.Context, address string) (domain.Coordinates, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.Coordinates{}, fmt.Errorf("geocode status: %s", resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, domain.WrapError(domain.ErrNotFound, "geocode",
			fmt.Errorf("address not found: %s", address))
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse longitude: %w", err)
	}
	return domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func classifyGeocodeError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	// An unknown address is a data problem, not a service failure.
	if domain.IsKind(err, domain.ErrNotFound) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
