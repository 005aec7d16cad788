// Package station resolves stations against the station registry service.
package station

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
)

const (
	SecretHeader = "x-secret"

	defaultTimeout = 30 * time.Second
)

// ErrNotFound collapses every lookup failure: missing, inactive, or unreachable.
var ErrNotFound = errors.New("station not found or inactive")

type Config struct {
	StationURL        string
	SecretGenerateURL string
}

// Client looks stations up in the registry. Each call mints a fresh secret.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient: httpClient,
		config:     config,
		logger:     logger.With("module", "station_client"),
	}
}

// Resolve returns the active station stationID owned by projectGroupID.
func (c *Client) Resolve(ctx context.Context, stationID, projectGroupID string) (*models.StationRef, error) {
	ref, err := c.lookup(ctx, stationID, projectGroupID)
	if err != nil {
		c.logger.WarnContext(ctx, "station lookup failed",
			"station_id", stationID, "project_group_id", projectGroupID, "error", err)

		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return ref, nil
}

func (c *Client) lookup(ctx context.Context, stationID, projectGroupID string) (*models.StationRef, error) {
	secret, err := c.generateSecret(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("tdei_station_id", stationID)
	params.Set("tdei_project_group_id", projectGroupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.StationURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build station request: %w", err)
	}

	req.Header.Set(SecretHeader, secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("station request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("station service returned status %d", resp.StatusCode)
	}

	var stations []models.StationRef

	err = json.NewDecoder(resp.Body).Decode(&stations)
	if err != nil {
		return nil, fmt.Errorf("failed to decode station response: %w", err)
	}

	if len(stations) == 0 {
		return nil, errors.New("no station returned")
	}

	station := stations[0]
	if !station.Active() {
		return nil, errors.New("station is inactive")
	}

	return &station, nil
}

func (c *Client) generateSecret(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.SecretGenerateURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build secret request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("secret request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to generate secret token: status %d: %s", resp.StatusCode, string(body))
	}

	return strings.TrimSpace(string(body)), nil
}
