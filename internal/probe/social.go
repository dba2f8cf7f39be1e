package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/webclient"
)

// Social platform probes: Facebook, Instagram, Twitter/X, TikTok, Snapchat,
// Pinterest. All are username-only; none expose profile lookup by email.

// Facebook detects public profiles under facebook.com/<username>.
type Facebook struct{ base }

func NewFacebook(wc webclient.WebClient, logger interfaces.Logger) *Facebook {
	return &Facebook{base{
		platform: "Facebook",
		baseURL:  "https://www.facebook.com",
		category: CategoryImpersonation,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Facebook) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !bodyContains(resp.Body, "page not found") {
		name := pageTitle(resp.Body)
		if name == "" {
			name = query
		}
		return p.ok(url, map[string]any{"name": name, "username": query}), nil
	}
	return p.notFound(), nil
}

// Instagram detects public profiles and grabs the bio preview from the
// og:description meta tag.
type Instagram struct{ base }

func NewInstagram(wc webclient.WebClient, logger interfaces.Logger) *Instagram {
	return &Instagram{base{
		platform: "Instagram",
		baseURL:  "https://www.instagram.com",
		category: CategoryStalking,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Instagram) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/%s/", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "Page Not Found") {
		return p.ok(url, map[string]any{
			"username":    query,
			"bio_preview": metaContent(resp.Body, "property", "og:description"),
		}), nil
	}
	return p.notFound(), nil
}

// Twitter detects x.com profiles.
type Twitter struct{ base }

func NewTwitter(wc webclient.WebClient, logger interfaces.Logger) *Twitter {
	return &Twitter{base{
		platform: "Twitter/X",
		baseURL:  "https://x.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Twitter) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "This account doesn") {
		display := pageTitle(resp.Body)
		if display == "" {
			display = query
		}
		return p.ok(url, map[string]any{"username": query, "display_name": display}), nil
	}
	return p.notFound(), nil
}

// TikTok detects tiktok.com/@<username> profiles.
type TikTok struct{ base }

func NewTikTok(wc webclient.WebClient, logger interfaces.Logger) *TikTok {
	return &TikTok{base{
		platform: "TikTok",
		baseURL:  "https://www.tiktok.com",
		category: CategoryStalking,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *TikTok) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/@%s", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "Couldn't find this account") {
		name := pageTitle(resp.Body)
		if name == "" {
			name = query
		}
		return p.ok(url, map[string]any{"username": query, "display_name": name}), nil
	}
	return p.notFound(), nil
}

// Snapchat detects public add pages under snapchat.com/add/<username>.
type Snapchat struct{ base }

func NewSnapchat(wc webclient.WebClient, logger interfaces.Logger) *Snapchat {
	return &Snapchat{base{
		platform: "Snapchat",
		baseURL:  "https://www.snapchat.com/add",
		category: CategoryStalking,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Snapchat) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !bodyContains(resp.Body, "add_web_not_found") {
		return p.ok(url, map[string]any{"username": query}), nil
	}
	return p.notFound(), nil
}

// Pinterest detects pinterest.com/<username> profiles.
type Pinterest struct{ base }

func NewPinterest(wc webclient.WebClient, logger interfaces.Logger) *Pinterest {
	return &Pinterest{base{
		platform: "Pinterest",
		baseURL:  "https://www.pinterest.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Pinterest) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	url := fmt.Sprintf("%s/%s/", p.baseURL, query)
	resp, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "Sorry, that page") {
		name := pageTitle(resp.Body)
		if name == "" {
			name = query
		}
		return p.ok(url, map[string]any{"username": query, "display_name": name}), nil
	}
	return p.notFound(), nil
}
