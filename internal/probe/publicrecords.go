package probe

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Public record probes: Shodan, Gravatar, Keybase, About.me.

// commonMailProviders are consumer email domains that say nothing about the
// subject's own infrastructure, so Shodan skips them.
var commonMailProviders = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
}

// Shodan searches for internet-facing hosts tied to the subject. For email
// queries the registrable domain is extracted and searched as a hostname.
type Shodan struct {
	base
	apiKey string
}

func NewShodan(apiKey string, wc webclient.WebClient, logger interfaces.Logger) *Shodan {
	return &Shodan{
		base: base{
			platform: "Shodan",
			baseURL:  "https://api.shodan.io",
			category: CategoryInfrastructure,
			wc:       wc,
			logger:   logger,
		},
		apiKey: apiKey,
	}
}

func (p *Shodan) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if p.apiKey == "" {
		p.logger.Warn("no Shodan API key configured, skipping")
		return p.fail("Shodan API key not configured"), nil
	}

	searchQuery := query
	if queryType == QueryEmail {
		at := strings.LastIndex(query, "@")
		if at < 0 {
			return p.notFound(), nil
		}
		domain := query[at+1:]
		if _, skip := commonMailProviders[domain]; skip {
			return p.notFound(), nil
		}
		// Collapse subdomain mail hosts to the registrable domain.
		if registrable, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
			domain = registrable
		}
		searchQuery = fmt.Sprintf("hostname:%s", domain)
	}

	u := fmt.Sprintf("%s/shodan/host/search?key=%s&query=%s&page=1",
		p.baseURL, url.QueryEscape(p.apiKey), url.QueryEscape(searchQuery))
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var data struct {
		Total   int `json:"total"`
		Matches []struct {
			IPStr   string `json:"ip_str"`
			Port    int    `json:"port"`
			Org     string `json:"org"`
			Product string `json:"product"`
			OS      string `json:"os"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("decode host search: %w", err)
	}
	if data.Total == 0 {
		return p.notFound(), nil
	}

	matches := data.Matches
	if len(matches) > 5 {
		matches = matches[:5]
	}
	hosts := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		hosts = append(hosts, map[string]any{
			"ip":      m.IPStr,
			"port":    m.Port,
			"org":     m.Org,
			"product": m.Product,
			"os":      m.OS,
		})
	}

	return p.ok(fmt.Sprintf("https://www.shodan.io/search?query=%s", url.QueryEscape(searchQuery)), map[string]any{
		"total_results": data.Total,
		"hosts":         hosts,
		"search_query":  searchQuery,
	}), nil
}

// Gravatar checks for a profile behind the MD5 hash of the email address.
type Gravatar struct{ base }

func NewGravatar(wc webclient.WebClient, logger interfaces.Logger) *Gravatar {
	return &Gravatar{base{
		platform: "Gravatar",
		baseURL:  "https://www.gravatar.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Gravatar) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType != QueryEmail {
		return p.notFound(), nil
	}

	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	emailHash := hex.EncodeToString(sum[:])

	resp, err := p.get(ctx, fmt.Sprintf("%s/%s.json", p.baseURL, emailHash))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var profile struct {
		Entry []struct {
			DisplayName     string `json:"displayName"`
			ProfileURL      string `json:"profileUrl"`
			ThumbnailURL    string `json:"thumbnailUrl"`
			AboutMe         string `json:"aboutMe"`
			CurrentLocation string `json:"currentLocation"`
			Accounts        []struct {
				Shortname string `json:"shortname"`
				URL       string `json:"url"`
			} `json:"accounts"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(profile.Entry) == 0 {
		return p.notFound(), nil
	}

	entry := profile.Entry[0]
	accounts := make([]map[string]any, 0, len(entry.Accounts))
	for _, a := range entry.Accounts {
		accounts = append(accounts, map[string]any{"name": a.Shortname, "url": a.URL})
	}
	return p.ok(fmt.Sprintf("%s/%s", p.baseURL, emailHash), map[string]any{
		"display_name": entry.DisplayName,
		"profile_url":  entry.ProfileURL,
		"avatar":       entry.ThumbnailURL,
		"about":        entry.AboutMe,
		"location":     entry.CurrentLocation,
		"accounts":     accounts,
	}), nil
}

// Keybase looks users up through the public lookup API, including their
// cross-platform identity proofs.
type Keybase struct{ base }

func NewKeybase(wc webclient.WebClient, logger interfaces.Logger) *Keybase {
	return &Keybase{base{
		platform: "Keybase",
		baseURL:  "https://keybase.io",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Keybase) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	apiURL := fmt.Sprintf("%s/_/api/1.0/user/lookup.json?usernames=%s", p.baseURL, url.QueryEscape(query))
	resp, err := p.get(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var lookup struct {
		Them []*struct {
			Profile struct {
				FullName string `json:"full_name"`
				Bio      string `json:"bio"`
			} `json:"profile"`
			ProofsSummary struct {
				All []struct {
					ProofType string `json:"proof_type"`
					Nametag   string `json:"nametag"`
				} `json:"all"`
			} `json:"proofs_summary"`
		} `json:"them"`
	}
	if err := json.Unmarshal(resp.Body, &lookup); err != nil {
		return nil, fmt.Errorf("decode lookup: %w", err)
	}
	if len(lookup.Them) == 0 || lookup.Them[0] == nil {
		return p.notFound(), nil
	}

	user := lookup.Them[0]
	all := user.ProofsSummary.All
	if len(all) > 10 {
		all = all[:10]
	}
	proofs := make([]map[string]any, 0, len(all))
	for _, pr := range all {
		proofs = append(proofs, map[string]any{"type": pr.ProofType, "handle": pr.Nametag})
	}
	return p.ok(fmt.Sprintf("%s/%s", p.baseURL, query), map[string]any{
		"username":  query,
		"full_name": user.Profile.FullName,
		"bio":       user.Profile.Bio,
		"proofs":    proofs,
	}), nil
}

// AboutMe probes about.me/<username> pages.
type AboutMe struct{ base }

func NewAboutMe(wc webclient.WebClient, logger interfaces.Logger) *AboutMe {
	return &AboutMe{base{
		platform: "About.me",
		baseURL:  "https://about.me",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *AboutMe) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	u := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !bodyContains(resp.Body, "page not found") {
		name := pageTitle(resp.Body)
		if name == "" {
			name = query
		}
		return p.ok(u, map[string]any{"username": query, "display_name": name}), nil
	}
	return p.notFound(), nil
}
