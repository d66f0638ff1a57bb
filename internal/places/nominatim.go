package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

// DefaultNominatimURL is the public Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimClient resolves coordinates to postal addresses.
type NominatimClient struct {
	client
}

// NewNominatimClient creates a client for the Nominatim server at baseURL, or
// the public server when baseURL is empty.
func NewNominatimClient(baseURL string, opts ...Option) *NominatimClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimClient{client: newClient(baseURL, opts)}
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Reverse returns the single best address for lat, lon. A location Nominatim
// cannot geocode (open sea, for instance) is NotFound.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (models.Address, error) {
	const op = "nominatim.Reverse"
	if !geo.ValidCoordinates(lat, lon) {
		return models.Address{}, common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}

	query := url.Values{
		"format":         {"jsonv2"},
		"lat":            {formatFloat(lat)},
		"lon":            {formatFloat(lon)},
		"addressdetails": {"1"},
	}
	endpoint := c.baseURL + "/reverse?" + query.Encode()

	var resp nominatimResponse
	err := c.getJSON(ctx, op, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &resp)
	if err != nil {
		return models.Address{}, err
	}
	if resp.Error != "" {
		return models.Address{}, common.NewNotFoundError(op, resp.Error)
	}
	if strings.TrimSpace(resp.DisplayName) == "" {
		return models.Address{}, common.NewNotFoundError(op, fmt.Sprintf("no address for %v, %v", lat, lon))
	}
	return models.Address{Address: resp.DisplayName, Details: resp.Address}, nil
}
