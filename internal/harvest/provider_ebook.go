package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tanaste-io/tanaste/internal/types"
)

// EbookProvider implements the ebook/audiobook search contract documented
// in spec §6: `{baseUrl}/search?term=...&entity=ebook|audiobook&limit=5`.
type EbookProvider struct {
	baseURL  string
	client   *http.Client
	throttle *Throttle
}

// ebookThrottle is shared by every EbookProvider instance.
var ebookThrottle = NewThrottle(300 * time.Millisecond)

// NewEbookProvider throttles at a 300ms minimum inter-call interval, the
// faster of the two documented provider rates.
func NewEbookProvider(baseURL string) *EbookProvider {
	return &EbookProvider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		throttle: ebookThrottle,
	}
}

func (p *EbookProvider) Name() string           { return "ebook-search" }
func (p *EbookProvider) ProviderID() string      { return "ebook-search" }
func (p *EbookProvider) Domain() Domain          { return DomainEbook }
func (p *EbookProvider) CapabilityTags() []string { return []string{"cover", "description", "rating", "title"} }

func (p *EbookProvider) CanHandleMedia(mt types.MediaType) bool {
	return mt == types.MediaEbook || mt == types.MediaAudio
}
func (p *EbookProvider) CanHandleEntity(et types.EntityType) bool { return et == types.EntityAsset }

type ebookSearchResponse struct {
	Results []ebookResult `json:"results"`
}

type ebookResult struct {
	ArtworkURL100 string  `json:"artworkUrl100"`
	Description   string  `json:"description"`
	AverageRating float64 `json:"averageUserRating"`
	TrackName     string  `json:"trackName"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func (p *EbookProvider) Fetch(ctx context.Context, req Request) ([]Claim, error) {
	if err := p.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	entity := "ebook"
	if req.MediaType == types.MediaAudio {
		entity = "audiobook"
	}
	term := req.Hints["title"]
	if author := req.Hints["author"]; author != "" {
		term = term + " " + author
	}

	u := fmt.Sprintf("%s/search?term=%s&entity=%s&limit=5", p.baseURL, url.QueryEscape(term), entity)
	httpReq, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, nil
	}

	resp, err := doWithRetry(ctx, p.client, httpReq, defaultRetryConfig())
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()

	var parsed ebookSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || len(parsed.Results) == 0 {
		return nil, nil
	}

	top := parsed.Results[0]
	var claims []Claim
	if top.ArtworkURL100 != "" {
		claims = append(claims, Claim{Key: "cover", Value: strings.Replace(top.ArtworkURL100, "100x100", "600x600", 1), Confidence: 0.7})
	}
	if top.Description != "" {
		claims = append(claims, Claim{Key: "description", Value: htmlTagPattern.ReplaceAllString(top.Description, ""), Confidence: 0.7})
	}
	if top.AverageRating != 0 {
		claims = append(claims, Claim{Key: "rating", Value: fmt.Sprintf("%.2f", top.AverageRating), Confidence: 0.6})
	}
	if top.TrackName != "" {
		claims = append(claims, Claim{Key: "title", Value: top.TrackName, Confidence: 0.6})
	}
	return claims, nil
}
