package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tanaste-io/tanaste/internal/types"
)

// AsinProvider implements `{baseUrl}/books/{asin}` from spec §6. A 404
// response is treated as an empty result, not an error.
type AsinProvider struct {
	baseURL  string
	client   *http.Client
	throttle *Throttle
}

// asinThrottle is shared by every AsinProvider instance.
var asinThrottle = NewThrottle(1100 * time.Millisecond)

// NewAsinProvider throttles at 1100ms, the documented 1-req/s provider rate.
func NewAsinProvider(baseURL string) *AsinProvider {
	return &AsinProvider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		throttle: asinThrottle,
	}
}

func (p *AsinProvider) Name() string            { return "asin-lookup" }
func (p *AsinProvider) ProviderID() string       { return "asin-lookup" }
func (p *AsinProvider) Domain() Domain           { return DomainAudiobook }
func (p *AsinProvider) CapabilityTags() []string { return []string{"narrator", "series", "series_position", "cover", "author"} }

func (p *AsinProvider) CanHandleMedia(mt types.MediaType) bool {
	return mt == types.MediaAudio || mt == types.MediaEbook
}
func (p *AsinProvider) CanHandleEntity(et types.EntityType) bool { return et == types.EntityAsset }

type asinBookResponse struct {
	Narrators      []string `json:"narrators"`
	Series         string   `json:"series"`
	SeriesPosition string   `json:"series_position"`
	Cover          string   `json:"cover"`
	Authors        []string `json:"authors"`
}

func (p *AsinProvider) Fetch(ctx context.Context, req Request) ([]Claim, error) {
	asin := req.Hints["asin"]
	if asin == "" {
		return nil, nil
	}
	if err := p.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/books/%s", p.baseURL, asin)
	httpReq, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil
	}

	resp, err := doWithRetry(ctx, p.client, httpReq, defaultRetryConfig())
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var parsed asinBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil
	}

	var claims []Claim
	if len(parsed.Narrators) > 0 {
		claims = append(claims, Claim{Key: "narrator", Value: strings.Join(parsed.Narrators, ", "), Confidence: 0.8})
	}
	if parsed.Series != "" {
		claims = append(claims, Claim{Key: "series", Value: parsed.Series, Confidence: 0.8})
	}
	if parsed.SeriesPosition != "" {
		claims = append(claims, Claim{Key: "series_position", Value: parsed.SeriesPosition, Confidence: 0.8})
	}
	if parsed.Cover != "" {
		claims = append(claims, Claim{Key: "cover", Value: parsed.Cover, Confidence: 0.7})
	}
	if len(parsed.Authors) > 0 {
		claims = append(claims, Claim{Key: "author", Value: strings.Join(parsed.Authors, ", "), Confidence: 0.8})
	}
	return claims, nil
}
