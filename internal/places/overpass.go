package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bstardust/memorable/internal/geo"
	"github.com/bstardust/memorable/pkg/common"
)

// DefaultOverpassURL is the public Overpass interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// OverpassClient searches OpenStreetMap for named features via Overpass QL.
type OverpassClient struct {
	client
}

// NewOverpassClient creates a client for the interpreter at baseURL, or the
// public endpoint when baseURL is empty.
func NewOverpassClient(baseURL string, opts ...Option) *OverpassClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOverpassURL
	}
	return &OverpassClient{client: newClient(baseURL, opts)}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Search returns the named nodes and ways within radius meters of lat, lon.
// Ways are positioned at their center.
func (c *OverpassClient) Search(ctx context.Context, lat, lon, radius float64) ([]POI, error) {
	const op = "overpass.Search"
	if !geo.ValidCoordinates(lat, lon) {
		return nil, common.NewValidationError(op, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
	}
	if radius <= 0 {
		return nil, common.NewValidationError(op, "radius must be positive")
	}

	form := url.Values{"data": {overpassQuery(lat, lon, radius)}}.Encode()
	var resp overpassResponse
	err := c.getJSON(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	pois := make([]POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		poi := POI{
			ID:   el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Name: name,
			Tags: el.Tags,
		}
		switch {
		case el.Lat != nil && el.Lon != nil:
			poi.Latitude, poi.Longitude = el.Lat, el.Lon
		case el.Center != nil:
			clat, clon := el.Center.Lat, el.Center.Lon
			poi.Latitude, poi.Longitude = &clat, &clon
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func overpassQuery(lat, lon, radius float64) string {
	around := fmt.Sprintf("(around:%s,%s,%s)", formatFloat(radius), formatFloat(lat), formatFloat(lon))
	return `[out:json][timeout:25];(node["name"]` + around + `;way["name"]` + around + `;);out center;`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
