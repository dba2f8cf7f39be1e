package takedown

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Regulation is cited in every generated email.
const Regulation = "GDPR Article 17 / CCPA §1798.105"

// platformContacts maps platforms to their privacy contact hints.
var platformContacts = map[string]string{
	"Facebook":       "privacy@facebook.com or https://www.facebook.com/help/contact/delete_account",
	"Instagram":      "privacy@instagram.com or https://help.instagram.com/contact/deletion",
	"Twitter/X":      "privacy@x.com or https://help.twitter.com/forms/privacy",
	"TikTok":         "privacy@tiktok.com or https://www.tiktok.com/legal/report/privacy",
	"Snapchat":       "privacy@snapchat.com or https://support.snapchat.com/en-US/a/delete-my-data",
	"Pinterest":      "privacy@pinterest.com or https://help.pinterest.com/en/article/delete-your-account",
	"LinkedIn":       "privacy@linkedin.com or https://www.linkedin.com/help/linkedin/ask/TS-RDMLP",
	"GitHub":         "privacy@github.com or https://support.github.com/contact/privacy",
	"GitLab":         "privacy@gitlab.com",
	"Behance":        "privacy@adobe.com",
	"HaveIBeenPwned": "N/A — This is a breach notification service. Focus on the breached platforms.",
	"Dehashed":       "support@dehashed.com",
	"Shodan":         "support@shodan.io",
	"Gravatar":       "privacy@automattic.com",
	"Keybase":        "privacy@keybase.io",
	"About.me":       "privacy@about.me",
	"Reddit":         "privacy@reddit.com or https://www.reddit.com/settings/delete",
	"StackOverflow":  "privacy@stackoverflow.com",
	"Medium":         "privacy@medium.com or yourfriends@medium.com",
	"HackerNews":     "hn@ycombinator.com",
}

// recipientHint returns the known privacy contact of a platform, guessing a
// privacy@ address for unknown ones.
func recipientHint(platform string) string {
	if hint, ok := platformContacts[platform]; ok {
		return hint
	}
	host := strings.ToLower(platform)
	host = strings.ReplaceAll(host, " ", "")
	host = strings.ReplaceAll(host, "/", "")
	return fmt.Sprintf("privacy@%s.com", host)
}

const templateBody = `Dear %s Data Protection / Privacy Team,

I am writing to exercise my rights under the European Union General Data Protection Regulation (GDPR), specifically Article 17 ("Right to Erasure"), and the California Consumer Privacy Act (CCPA), §1798.105, to request the complete deletion of my personal data from your platform and all associated systems.

**Data Subject Information:**
- Full Name: %s
- Email Address: %s
- Platform: %s
- Date of Request: %s%s

**Request:**

I hereby request that you:

1. **Delete** all personal data you hold about me, including but not limited to: account information, profile data, posts, comments, messages, photos, location data, device information, cookies, tracking data, and any data shared with or received from third parties.

2. **Cease** any further processing of my personal data.

3. **Notify** any third parties with whom my data has been shared to also delete my data, in accordance with GDPR Article 17(2).

4. **Confirm** the completion of this deletion in writing within **30 calendar days** of receiving this request, as required by GDPR Article 12(3) and CCPA §1798.105.

**Legal Basis:**

Under GDPR Article 17(1), I have the right to obtain erasure of personal data without undue delay. Under CCPA §1798.105, a consumer has the right to request that a business delete any personal information about the consumer which the business has collected.

**Non-Compliance Notice:**

Please be advised that failure to comply with this request within the statutory deadline may result in:
- A complaint to the relevant Data Protection Authority (GDPR)
- A complaint to the California Attorney General (CCPA)
- Pursuit of additional remedies available under applicable law

I look forward to your confirmation of deletion.

Sincerely,

%s
%s`

// templateEmail renders the pre-built legal template. It is the fallback for
// every path the language model cannot serve.
func templateEmail(req Request, now time.Time) *Email {
	today := now.UTC().Format("January 2, 2006")

	dataDescription := ""
	if items := findingItems(req.Findings); len(items) > 0 {
		dataDescription = fmt.Sprintf(
			"\n\nSpecifically, I have identified the following personal data held by %s:\n%s",
			req.Platform, strings.Join(items, "\n"))
	}

	return &Email{
		Subject: fmt.Sprintf(
			"Data Deletion Request Under GDPR Article 17 & CCPA §1798.105 — %s Account",
			req.Platform),
		Body: fmt.Sprintf(templateBody,
			req.Platform, req.UserName, req.UserEmail, req.Platform,
			today, dataDescription, req.UserName, req.UserEmail),
		RecipientHint: recipientHint(req.Platform),
		Regulation:    Regulation,
		Platform:      req.Platform,
	}
}

// findingItems renders the finding data as sorted bullet items, skipping
// empty values and the source marker.
func findingItems(findings map[string]any) []string {
	if len(findings) == 0 {
		return nil
	}
	keys := make([]string, 0, len(findings))
	for k, v := range findings {
		if k == "source" || v == nil || fmt.Sprint(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, fmt.Sprintf("  - %s: %v", k, findings[k]))
	}
	return items
}
