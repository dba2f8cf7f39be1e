package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Professional platform probes: LinkedIn, GitHub, GitLab, Behance.

// LinkedIn detects public profiles under linkedin.com/in/<slug>. A hit here
// feeds spear-phishing risk, hence the category.
type LinkedIn struct{ base }

func NewLinkedIn(wc webclient.WebClient, logger interfaces.Logger) *LinkedIn {
	return &LinkedIn{base{
		platform: "LinkedIn",
		baseURL:  "https://www.linkedin.com/in",
		category: CategoryPhishing,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *LinkedIn) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	u := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !bodyContains(resp.Body, "page-not-found") {
		name := strings.TrimSuffix(pageTitle(resp.Body), " | LinkedIn")
		if name == "" {
			name = query
		}
		return p.ok(u, map[string]any{
			"username": query,
			"name":     name,
			"headline": metaContent(resp.Body, "name", "description"),
		}), nil
	}
	return p.notFound(), nil
}

// GitHub uses the public REST API. Email queries go through user search;
// username queries hit the users endpoint directly.
type GitHub struct{ base }

func NewGitHub(wc webclient.WebClient, logger interfaces.Logger) *GitHub {
	return &GitHub{base{
		platform: "GitHub",
		baseURL:  "https://api.github.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *GitHub) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		searchURL := fmt.Sprintf("%s/search/users?q=%s+in:email", p.baseURL, url.QueryEscape(query))
		resp, err := p.get(ctx, searchURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return p.notFound(), nil
		}
		var search struct {
			TotalCount int `json:"total_count"`
			Items      []struct {
				Login     string `json:"login"`
				HTMLURL   string `json:"html_url"`
				AvatarURL string `json:"avatar_url"`
			} `json:"items"`
		}
		if err := json.Unmarshal(resp.Body, &search); err != nil {
			return nil, fmt.Errorf("decode user search: %w", err)
		}
		if search.TotalCount > 0 && len(search.Items) > 0 {
			user := search.Items[0]
			return p.ok(user.HTMLURL, map[string]any{
				"username": user.Login,
				"avatar":   user.AvatarURL,
			}), nil
		}
		return p.notFound(), nil
	}

	resp, err := p.get(ctx, fmt.Sprintf("%s/users/%s", p.baseURL, query))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}
	var user struct {
		Login       string `json:"login"`
		Name        string `json:"name"`
		Bio         string `json:"bio"`
		PublicRepos int    `json:"public_repos"`
		Followers   int    `json:"followers"`
		AvatarURL   string `json:"avatar_url"`
		Company     string `json:"company"`
		Location    string `json:"location"`
		Blog        string `json:"blog"`
		HTMLURL     string `json:"html_url"`
		CreatedAt   string `json:"created_at"`
	}
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	profileURL := user.HTMLURL
	if profileURL == "" {
		profileURL = fmt.Sprintf("https://github.com/%s", query)
	}
	return p.ok(profileURL, map[string]any{
		"username":     user.Login,
		"name":         user.Name,
		"bio":          user.Bio,
		"public_repos": user.PublicRepos,
		"followers":    user.Followers,
		"avatar":       user.AvatarURL,
		"company":      user.Company,
		"location":     user.Location,
		"blog":         user.Blog,
		"created_at":   user.CreatedAt,
	}), nil
}

// GitLab looks usernames up through the public users API.
type GitLab struct{ base }

func NewGitLab(wc webclient.WebClient, logger interfaces.Logger) *GitLab {
	return &GitLab{base{
		platform: "GitLab",
		baseURL:  "https://gitlab.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *GitLab) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	apiURL := fmt.Sprintf("%s/api/v4/users?username=%s", p.baseURL, url.QueryEscape(query))
	resp, err := p.get(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}
	var users []struct {
		Username  string `json:"username"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		State     string `json:"state"`
		WebURL    string `json:"web_url"`
	}
	if err := json.Unmarshal(resp.Body, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(users) == 0 {
		return p.notFound(), nil
	}
	user := users[0]
	profileURL := user.WebURL
	if profileURL == "" {
		profileURL = fmt.Sprintf("%s/%s", p.baseURL, query)
	}
	return p.ok(profileURL, map[string]any{
		"username": user.Username,
		"name":     user.Name,
		"avatar":   user.AvatarURL,
		"state":    user.State,
	}), nil
}

// Behance detects portfolio pages under behance.net/<username>.
type Behance struct{ base }

func NewBehance(wc webclient.WebClient, logger interfaces.Logger) *Behance {
	return &Behance{base{
		platform: "Behance",
		baseURL:  "https://www.behance.net",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Behance) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	u := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "Page Not Found") {
		name := pageTitle(resp.Body)
		if name == "" {
			name = query
		}
		return p.ok(u, map[string]any{"username": query, "display_name": name}), nil
	}
	return p.notFound(), nil
}
