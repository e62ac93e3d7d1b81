package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opswatch/incidentd/pkg/models"
)

// ListResult is the body of a REST listing.
type ListResult struct {
	TenantID string             `json:"tenant_id"`
	Items    []*models.Incident `json:"items"`
}

// ListIncidents fetches the current incident list over REST. tenant may be
// empty to use the daemon's default scope.
func ListIncidents(ctx context.Context, baseURL, tenant string) (*ListResult, error) {
	endpoint := restURL(baseURL, "/api/incidents")
	if tenant != "" {
		endpoint += "?tenant_id=" + url.QueryEscape(tenant)
	}

	var result ListResult
	if err := getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchIncident fetches a single incident over REST.
func FetchIncident(ctx context.Context, baseURL string, id int64) (*models.Incident, error) {
	var inc models.Incident
	if err := getJSON(ctx, restURL(baseURL, fmt.Sprintf("/api/incidents/%d", id)), &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// DeleteIncident removes an incident over REST. The daemon broadcasts the
// removal to all realtime clients as a side effect.
func DeleteIncident(ctx context.Context, baseURL string, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, restURL(baseURL, fmt.Sprintf("/api/incidents/%d", id)), nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return nil
}

func getJSON(ctx context.Context, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// responseError surfaces the daemon's error body.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode)
}

// restURL joins a base URL (http scheme assumed when none given) and path.
func restURL(baseURL, path string) string {
	base := baseURL
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimSuffix(base, "/") + path
}
