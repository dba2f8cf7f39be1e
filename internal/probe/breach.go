package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Breach database probes: HaveIBeenPwned and Dehashed. Hits here are the
// highest-weighted signal in the report.

// HIBP queries the HaveIBeenPwned v3 API. The API requires a paid key; when
// none is configured the probe degrades to a contained error result so the
// finding count stays stable.
type HIBP struct {
	base
	apiKey string
}

func NewHIBP(apiKey string, wc webclient.WebClient, logger interfaces.Logger) *HIBP {
	return &HIBP{
		base: base{
			platform: "HaveIBeenPwned",
			baseURL:  "https://haveibeenpwned.com/api/v3",
			category: CategoryDataBreach,
			wc:       wc,
			logger:   logger,
		},
		apiKey: apiKey,
	}
}

func (p *HIBP) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType != QueryEmail {
		return p.notFound(), nil
	}
	if p.apiKey == "" {
		p.logger.Warn("no HIBP API key configured, skipping breach check")
		return p.fail("HIBP API key not configured"), nil
	}

	u := fmt.Sprintf("%s/breachedaccount/%s?truncateResponse=false", p.baseURL, query)
	headers := http.Header{}
	headers.Set("hibp-api-key", p.apiKey)
	resp, err := p.getWithHeaders(ctx, u, headers)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		// No breaches on record. The good outcome.
		return p.notFound(), nil
	case http.StatusUnauthorized:
		return p.fail("HIBP API key invalid"), nil
	case http.StatusTooManyRequests:
		return p.fail("HIBP rate limit exceeded"), nil
	case http.StatusOK:
	default:
		return p.fail(fmt.Sprintf("HIBP returned status %d", resp.StatusCode)), nil
	}

	var breaches []struct {
		Name        string   `json:"Name"`
		BreachDate  string   `json:"BreachDate"`
		PwnCount    int      `json:"PwnCount"`
		DataClasses []string `json:"DataClasses"`
	}
	if err := json.Unmarshal(resp.Body, &breaches); err != nil {
		return nil, fmt.Errorf("decode breaches: %w", err)
	}

	names := make([]string, 0, len(breaches))
	totalPwned := 0
	classSet := map[string]struct{}{}
	for _, b := range breaches {
		names = append(names, b.Name)
		totalPwned += b.PwnCount
		for _, c := range b.DataClasses {
			classSet[c] = struct{}{}
		}
	}
	if len(names) > 20 {
		names = names[:20]
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	mostRecent := ""
	if len(breaches) > 0 {
		mostRecent = breaches[0].BreachDate
	}

	return p.ok(fmt.Sprintf("https://haveibeenpwned.com/account/%s", query), map[string]any{
		"breaches_count":        len(breaches),
		"breach_names":          names,
		"total_records_exposed": totalPwned,
		"data_types_exposed":    classes,
		"most_recent_breach":    mostRecent,
	}), nil
}

// Dehashed probes the public search page for leaked-database hits.
type Dehashed struct{ base }

func NewDehashed(wc webclient.WebClient, logger interfaces.Logger) *Dehashed {
	return &Dehashed{base{
		platform: "Dehashed",
		baseURL:  "https://www.dehashed.com",
		category: CategoryDataBreach,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Dehashed) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	searchParam := "username"
	if queryType == QueryEmail {
		searchParam = "email"
	}
	u := fmt.Sprintf("%s/search?query=%s:%s", p.baseURL, searchParam, query)

	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK &&
		!bodyContains(resp.Body, "no results found") &&
		bodyContains(resp.Body, "entries found") {
		return p.ok(u, map[string]any{
			"query":      query,
			"query_type": string(queryType),
			"source":     "dehashed_public_search",
		}), nil
	}
	return p.notFound(), nil
}
