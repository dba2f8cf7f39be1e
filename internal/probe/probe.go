package probe

import (
	"context"
	"net/http"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// QueryType says whether the subject is identified by email or username.
type QueryType string

const (
	QueryEmail    QueryType = "email"
	QueryUsername QueryType = "username"
)

// Category classifies the kind of exposure a platform hit represents. The set
// is closed; scoring weights and descriptions key off it.
type Category string

const (
	CategoryImpersonation  Category = "IMPERSONATION"
	CategoryPhishing       Category = "PHISHING"
	CategoryStalking       Category = "STALKING"
	CategoryReputational   Category = "REPUTATIONAL"
	CategoryDataBreach     Category = "DATA_BREACH"
	CategoryInfrastructure Category = "INFRASTRUCTURE"
)

// Categories lists every category in a fixed order. Reports enumerate all of
// them even when a category has no hits.
func Categories() []Category {
	return []Category{
		CategoryImpersonation,
		CategoryPhishing,
		CategoryStalking,
		CategoryReputational,
		CategoryDataBreach,
		CategoryInfrastructure,
	}
}

// Probe is one platform adapter. Given a query it attempts to detect a
// presence on its platform. Implementations are expected to honor ctx but the
// Runner contains those that don't.
type Probe interface {
	// Platform is the stable display name, unique across the registry.
	Platform() string

	// BaseURL is the platform root the probe talks to.
	BaseURL() string

	// Category is the exposure class a hit on this platform represents.
	Category() Category

	// Check looks the query up on the platform. It should return a Result
	// for found/not-found outcomes and an error only for transport or
	// upstream failures; the Runner converts errors into contained Results.
	Check(ctx context.Context, query string, queryType QueryType) (*Result, error)
}

// Result is the immutable outcome of one probe for one query. A Result with
// Found=false and a non-empty Error means the probe failed; Found=false with
// an empty Error means the platform genuinely had nothing.
type Result struct {
	Platform string         `json:"platform"`
	URL      string         `json:"url,omitempty"`
	Found    bool           `json:"found"`
	Data     map[string]any `json:"data,omitempty"`
	Category Category       `json:"risk_category,omitempty"`
	Score    float64        `json:"risk_score"`
	Error    string         `json:"error,omitempty"`
}

// base carries the static identity and shared plumbing every adapter needs.
type base struct {
	platform string
	baseURL  string
	category Category
	wc       webclient.WebClient
	logger   interfaces.Logger
}

func (b *base) Platform() string   { return b.platform }
func (b *base) BaseURL() string    { return b.baseURL }
func (b *base) Category() Category { return b.category }

// ok builds a found Result.
func (b *base) ok(url string, data map[string]any) *Result {
	return &Result{
		Platform: b.platform,
		URL:      url,
		Found:    true,
		Data:     data,
		Category: b.category,
	}
}

// notFound builds a clean miss. Absence is not failure.
func (b *base) notFound() *Result {
	return &Result{
		Platform: b.platform,
		Found:    false,
		Category: b.category,
	}
}

// fail builds a contained failure Result.
func (b *base) fail(msg string) *Result {
	return &Result{
		Platform: b.platform,
		Found:    false,
		Category: b.category,
		Error:    msg,
	}
}

// get performs a GET through the shared webclient.
func (b *base) get(ctx context.Context, url string) (*webclient.Response, error) {
	return webclient.Get(ctx, b.wc, url)
}

// getWithHeaders performs a GET with extra request headers.
func (b *base) getWithHeaders(ctx context.Context, url string, headers http.Header) (*webclient.Response, error) {
	return b.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: url, Headers: headers})
}
