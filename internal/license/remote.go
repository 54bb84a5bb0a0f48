package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/httpclient"
)

// RemoteActivator POSTs {product_id, license_code} to a fixed licence
// service endpoint (spec §4.4) and implements Activator.
type RemoteActivator struct {
	Endpoint string
	client   *http.Client
}

// NewRemoteActivator returns a RemoteActivator calling endpoint.
func NewRemoteActivator(endpoint string) *RemoteActivator {
	return &RemoteActivator{Endpoint: endpoint, client: httpclient.New(15 * time.Second)}
}

type activateRequest struct {
	ProductID   string `json:"product_id"`
	LicenseCode string `json:"license_code"`
}

type activateResponse struct {
	Success bool   `json:"success"`
	Config  Config `json:"config"`
}

// Activate implements Activator.
func (r *RemoteActivator) Activate(ctx context.Context, productID, licenseCode string) (Config, bool, error) {
	body, err := json.Marshal(activateRequest{ProductID: productID, LicenseCode: licenseCode})
	if err != nil {
		return Config{}, false, fmt.Errorf("license: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Config{}, false, fmt.Errorf("license: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Config{}, false, fmt.Errorf("license: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Config{}, false, fmt.Errorf("license: service returned %d", resp.StatusCode)
	}

	var parsed activateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Config{}, false, fmt.Errorf("license: decode response: %w", err)
	}
	if !parsed.Success {
		return Config{}, false, nil
	}
	return parsed.Config, true, nil
}
