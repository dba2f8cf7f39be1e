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

// Forum and community probes: Reddit, StackOverflow, Medium, HackerNews.

// Reddit uses the public about.json endpoint for profile data.
type Reddit struct{ base }

func NewReddit(wc webclient.WebClient, logger interfaces.Logger) *Reddit {
	return &Reddit{base{
		platform: "Reddit",
		baseURL:  "https://www.reddit.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Reddit) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	resp, err := p.get(ctx, fmt.Sprintf("%s/user/%s/about.json", p.baseURL, query))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var about struct {
		Data struct {
			Name             string  `json:"name"`
			TotalKarma       int     `json:"total_karma"`
			LinkKarma        int     `json:"link_karma"`
			CommentKarma     int     `json:"comment_karma"`
			CreatedUTC       float64 `json:"created_utc"`
			HasVerifiedEmail bool    `json:"has_verified_email"`
			IconImg          string  `json:"icon_img"`
			IsSuspended      bool    `json:"is_suspended"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &about); err != nil {
		return nil, fmt.Errorf("decode about: %w", err)
	}
	if about.Data.Name == "" || about.Data.IsSuspended {
		return p.notFound(), nil
	}

	return p.ok(fmt.Sprintf("%s/user/%s", p.baseURL, query), map[string]any{
		"username":            about.Data.Name,
		"karma_total":         about.Data.TotalKarma,
		"link_karma":          about.Data.LinkKarma,
		"comment_karma":       about.Data.CommentKarma,
		"account_created_utc": about.Data.CreatedUTC,
		"has_verified_email":  about.Data.HasVerifiedEmail,
		"icon":                about.Data.IconImg,
	}), nil
}

// StackOverflow searches display names through the StackExchange API and
// accepts exact or substring matches.
type StackOverflow struct{ base }

func NewStackOverflow(wc webclient.WebClient, logger interfaces.Logger) *StackOverflow {
	return &StackOverflow{base{
		platform: "StackOverflow",
		baseURL:  "https://api.stackexchange.com/2.3",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *StackOverflow) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	u := fmt.Sprintf("%s/users?inname=%s&site=stackoverflow&pagesize=5&order=desc&sort=reputation",
		p.baseURL, url.QueryEscape(query))
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var search struct {
		Items []struct {
			DisplayName string `json:"display_name"`
			Reputation  int    `json:"reputation"`
			UserID      int    `json:"user_id"`
			Link        string `json:"link"`
			BadgeCounts struct {
				Gold   int `json:"gold"`
				Silver int `json:"silver"`
				Bronze int `json:"bronze"`
			} `json:"badge_counts"`
			ProfileImage string `json:"profile_image"`
			Location     string `json:"location"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &search); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	for _, user := range search.Items {
		display := strings.ToLower(user.DisplayName)
		if display == strings.ToLower(query) || strings.Contains(display, strings.ToLower(query)) {
			profileURL := user.Link
			if profileURL == "" {
				profileURL = fmt.Sprintf("https://stackoverflow.com/users/%d", user.UserID)
			}
			return p.ok(profileURL, map[string]any{
				"username":      user.DisplayName,
				"reputation":    user.Reputation,
				"badges_gold":   user.BadgeCounts.Gold,
				"badges_silver": user.BadgeCounts.Silver,
				"badges_bronze": user.BadgeCounts.Bronze,
				"avatar":        user.ProfileImage,
				"location":      user.Location,
			}), nil
		}
	}
	return p.notFound(), nil
}

// Medium probes medium.com/@<username> author pages.
type Medium struct{ base }

func NewMedium(wc webclient.WebClient, logger interfaces.Logger) *Medium {
	return &Medium{base{
		platform: "Medium",
		baseURL:  "https://medium.com",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *Medium) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	u := fmt.Sprintf("%s/@%s", p.baseURL, query)
	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK && !strings.Contains(string(resp.Body), "Page not found") {
		name := strings.TrimSuffix(pageTitle(resp.Body), " – Medium")
		if name == "" {
			name = query
		}
		return p.ok(u, map[string]any{
			"username":     query,
			"display_name": name,
			"bio":          metaContent(resp.Body, "name", "description"),
		}), nil
	}
	return p.notFound(), nil
}

// HackerNews uses the Firebase user API; a user object with an id is a hit.
type HackerNews struct{ base }

func NewHackerNews(wc webclient.WebClient, logger interfaces.Logger) *HackerNews {
	return &HackerNews{base{
		platform: "HackerNews",
		baseURL:  "https://hacker-news.firebaseio.com/v0",
		category: CategoryReputational,
		wc:       wc,
		logger:   logger,
	}}
}

func (p *HackerNews) Check(ctx context.Context, query string, queryType QueryType) (*Result, error) {
	if queryType == QueryEmail {
		return p.notFound(), nil
	}

	resp, err := p.get(ctx, fmt.Sprintf("%s/user/%s.json", p.baseURL, query))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return p.notFound(), nil
	}

	var user struct {
		ID      string `json:"id"`
		Karma   int    `json:"karma"`
		About   string `json:"about"`
		Created int64  `json:"created"`
	}
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		// The endpoint returns the literal "null" for unknown users.
		return p.notFound(), nil
	}
	if user.ID == "" {
		return p.notFound(), nil
	}

	return p.ok(fmt.Sprintf("https://news.ycombinator.com/user?id=%s", query), map[string]any{
		"username": user.ID,
		"karma":    user.Karma,
		"about":    user.About,
		"created":  user.Created,
	}), nil
}
