package nearby

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultProviderTimeout = 5 * time.Second
	maxResponseBytes       = 1 << 20
)

// HTTPProvider queries a place search HTTP API:
//
//	GET {base}/v1/places/search?lat=..&lng=..&radius_m=..[&category=..][&city=..]
//
// answering {"places":[{"name","address","lat","lng","category","url","phone"}]}.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider client. A zero timeout uses 5s.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type providerPlace struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Category string  `json:"category"`
	URL      string  `json:"url"`
	Phone    string  `json:"phone"`
}

type providerResponse struct {
	Places []providerPlace `json:"places"`
}

// Search implements Searcher.
func (p *HTTPProvider) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(req.Location.Lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(req.Location.Lng, 'f', 6, 64))
	q.Set("radius_m", strconv.Itoa(req.RadiusKm*1000))
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if req.CityHint != "" {
		q.Set("city", req.CityHint)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/places/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("place search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoResults
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place search returned status %d", resp.StatusCode)
	}

	var decoded providerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	places := make([]Place, 0, len(decoded.Places))
	for _, pp := range decoded.Places {
		name := strings.TrimSpace(pp.Name)
		if name == "" {
			continue
		}
		places = append(places, Place{
			ID:           PlaceID(name, pp.Lat, pp.Lng),
			Name:         name,
			Address:      strings.TrimSpace(pp.Address),
			Lat:          pp.Lat,
			Lng:          pp.Lng,
			CategoryHint: strings.TrimSpace(pp.Category),
			ExternalLink: pp.URL,
			Phone:        pp.Phone,
		})
	}
	if len(places) == 0 {
		return nil, ErrNoResults
	}
	return places, nil
}
