package risk

import "github.com/veilscan/veilscan/internal/probe"

// Weights are the fixed contribution of each category to the overall score.
// They are invariant across scans and deliberately do not sum to 1; the
// scorer normalizes by the weight sum.
var Weights = map[probe.Category]float64{
	probe.CategoryDataBreach:     0.30,
	probe.CategoryInfrastructure: 0.20,
	probe.CategoryPhishing:       0.20,
	probe.CategoryImpersonation:  0.15,
	probe.CategoryStalking:       0.10,
	probe.CategoryReputational:   0.05,
}

// defaultWeight guards against a category missing from Weights, which cannot
// happen with the closed set but keeps the lookup total.
const defaultWeight = 0.10

func categoryWeight(cat probe.Category) float64 {
	if w, ok := Weights[cat]; ok {
		return w
	}
	return defaultWeight
}

// Descriptions is the fixed human-readable explanation per category.
var Descriptions = map[probe.Category]string{
	probe.CategoryImpersonation: "Risk of identity theft or impersonation. Your public profiles could be " +
		"cloned to create fake accounts for social engineering attacks.",
	probe.CategoryPhishing: "Risk of targeted phishing. Professional information can be used to craft " +
		"convincing spear-phishing emails targeting you or your organization.",
	probe.CategoryStalking: "Risk of physical or cyber stalking. Location data, daily routines, or " +
		"personal photos could be exploited for harassment.",
	probe.CategoryReputational: "Risk of reputational damage. Public posts, comments, or associated accounts " +
		"could be used to damage your professional or personal reputation.",
	probe.CategoryDataBreach: "Your credentials have been exposed in known data breaches. Compromised " +
		"passwords may give attackers access to your accounts.",
	probe.CategoryInfrastructure: "Internet-facing services or devices associated with you have been detected. " +
		"Misconfigured services could be exploited for unauthorized access.",
}

// PlatformBaseScores is the raw 0-10 severity of a confirmed hit per
// platform. Unknown platforms fall back to defaultBaseScore.
var PlatformBaseScores = map[string]float64{
	// Social: high stalking / impersonation risk
	"Facebook":  7.0,
	"Instagram": 6.5,
	"Twitter/X": 5.0,
	"TikTok":    5.5,
	"Snapchat":  6.0,
	"Pinterest": 3.0,
	// Professional: phishing risk
	"LinkedIn": 8.0,
	"GitHub":   4.0,
	"GitLab":   3.5,
	"Behance":  3.0,
	// Breach databases: critical
	"HaveIBeenPwned": 9.5,
	"Dehashed":       8.5,
	// Infrastructure: critical
	"Shodan": 9.0,
	// Public records: moderate
	"Gravatar": 4.0,
	"Keybase":  3.0,
	"About.me": 3.5,
	// Forums: low to moderate
	"Reddit":        4.5,
	"StackOverflow": 3.0,
	"Medium":        3.0,
	"HackerNews":    3.0,
}

const defaultBaseScore = 5.0

// PlatformWarnings maps a platform to the warning attached to its category
// breakdown when the platform is found.
var PlatformWarnings = map[string]string{
	"Facebook": "SOCIAL ENGINEERING RISK: Your Facebook profile exposes personal details " +
		"that attackers can use for social engineering, pretexting, and impersonation.",
	"LinkedIn": "TARGETED PHISHING RISK: Your LinkedIn profile reveals professional details " +
		"that enable highly convincing spear-phishing campaigns targeting you or colleagues.",
	"HaveIBeenPwned": "CREDENTIAL BREACH DETECTED: Your email was found in known data breaches. " +
		"PRIORITY: update all passwords immediately and enable multi-factor authentication.",
	"Shodan": "INFRASTRUCTURE EXPOSURE: Internet-facing services associated with your domain " +
		"were detected on Shodan. Review for misconfigured services and open ports.",
	"Instagram": "STALKING RISK: Your Instagram activity may reveal location patterns, " +
		"daily routines, and personal relationships.",
	"Twitter/X": "REPUTATIONAL RISK: Public tweets and interactions can be scraped and " +
		"used for profiling or reputational attacks.",
	"Dehashed": "CREDENTIAL LEAK: Your information appeared in leaked/breached databases. " +
		"Change passwords on all affected services and enable multi-factor authentication.",
}
