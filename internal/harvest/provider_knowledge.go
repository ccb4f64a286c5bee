package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tanaste-io/tanaste/internal/types"
)

// KnowledgeGraphProvider implements the two-step open-knowledge-graph
// lookup from spec §6: wbsearchentities then wbgetentities, used for
// person enrichment (external id, biography, portrait).
type KnowledgeGraphProvider struct {
	baseURL  string
	client   *http.Client
	throttle *Throttle
}

// NewKnowledgeGraphProvider has no declared minimum interval in spec §4.8
// ("none for others"), so its throttle is a no-op.
func NewKnowledgeGraphProvider(baseURL string) *KnowledgeGraphProvider {
	return &KnowledgeGraphProvider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		throttle: NewThrottle(0),
	}
}

func (p *KnowledgeGraphProvider) Name() string            { return "knowledge-graph" }
func (p *KnowledgeGraphProvider) ProviderID() string       { return "knowledge-graph" }
func (p *KnowledgeGraphProvider) Domain() Domain           { return DomainUniversal }
func (p *KnowledgeGraphProvider) CapabilityTags() []string { return []string{"externalId", "biography", "portraitUrl"} }

func (p *KnowledgeGraphProvider) CanHandleMedia(types.MediaType) bool { return true }
func (p *KnowledgeGraphProvider) CanHandleEntity(et types.EntityType) bool {
	return et == types.EntityPerson
}

type searchEntitiesResponse struct {
	Search []struct {
		ID string `json:"id"`
	} `json:"search"`
}

type getEntitiesResponse struct {
	Entities map[string]struct {
		Descriptions map[string]struct {
			Value string `json:"value"`
		} `json:"descriptions"`
		Claims map[string][]struct {
			MainSnak struct {
				DataValue struct {
					Value string `json:"value"`
				} `json:"datavalue"`
			} `json:"mainsnak"`
		} `json:"claims"`
	} `json:"entities"`
}

// portraitClaimID is the Commons-image statement property used across
// the open-knowledge-graph schema.
const portraitClaimID = "P18"

func (p *KnowledgeGraphProvider) Fetch(ctx context.Context, req Request) ([]Claim, error) {
	name := req.Hints["name"]
	if name == "" {
		return nil, nil
	}
	if err := p.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/w/api.php?action=wbsearchentities&search=%s&language=en&format=json", p.baseURL, url.QueryEscape(name))
	searchReq, err := http.NewRequest(http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, nil
	}
	resp, err := doWithRetry(ctx, p.client, searchReq, defaultRetryConfig())
	if err != nil {
		return nil, nil
	}
	var search searchEntitiesResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&search)
	resp.Body.Close()
	if decodeErr != nil || len(search.Search) == 0 {
		return nil, nil
	}
	entityID := search.Search[0].ID

	getURL := fmt.Sprintf("%s/w/api.php?action=wbgetentities&ids=%s&languages=en&format=json", p.baseURL, entityID)
	getReq, err := http.NewRequest(http.MethodGet, getURL, nil)
	if err != nil {
		return nil, nil
	}
	resp, err = doWithRetry(ctx, p.client, getReq, defaultRetryConfig())
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()

	var got getEntitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		return nil, nil
	}
	entity, ok := got.Entities[entityID]
	if !ok {
		return nil, nil
	}

	claims := []Claim{{Key: "externalId", Value: entityID, Confidence: 1.0}}
	if desc, ok := entity.Descriptions["en"]; ok && desc.Value != "" {
		claims = append(claims, Claim{Key: "biography", Value: desc.Value, Confidence: 1.0})
	}
	if portraitClaims, ok := entity.Claims[portraitClaimID]; ok && len(portraitClaims) > 0 {
		filename := portraitClaims[0].MainSnak.DataValue.Value
		portraitURL := commonsPortraitURL(filename)
		claims = append(claims, Claim{Key: "portraitUrl", Value: portraitURL, Confidence: 1.0})
	}
	return claims, nil
}

// commonsPortraitURL synthesises a Commons thumbnail URL by replacing
// spaces with underscores and URL-escaping the filename into a fixed path
// template with a width query, per spec §6.
func commonsPortraitURL(filename string) string {
	escaped := url.PathEscape(strings.ReplaceAll(filename, " ", "_"))
	return fmt.Sprintf("https://commons.wikimedia.org/wiki/Special:FilePath/%s?width=512", escaped)
}
