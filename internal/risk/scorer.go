package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/veilscan/veilscan/internal/probe"
)

// Scoring constants. categorySaturation approximates "three strong platform
// hits" as the point where a category maxes out; dataBonusPerField rewards
// data-rich findings up to maxDataBonus.
const (
	categorySaturation = 30.0
	dataBonusPerField  = 0.3
	maxDataBonus       = 2.0
	maxPlatformScore   = 10.0
)

// priorityOrder is the recommendation ordering, most dangerous first. It is
// intentionally different from the enumeration order of category_scores.
var priorityOrder = []probe.Category{
	probe.CategoryDataBreach,
	probe.CategoryInfrastructure,
	probe.CategoryPhishing,
	probe.CategoryImpersonation,
	probe.CategoryStalking,
	probe.CategoryReputational,
}

// Score folds all probe results into a ThreatReport. It is a pure function:
// no I/O, no clock, no randomness; identical input produces an identical
// report, which the scan pipeline and the tests both rely on.
func Score(results []probe.Result) *ThreatReport {
	totalPlatforms := len(results)

	var found []probe.Result
	for _, r := range results {
		if r.Found {
			found = append(found, r)
		}
	}

	// Group hits by category, preserving input order within a category.
	hitsByCategory := make(map[probe.Category][]probe.Result)
	for _, r := range found {
		cat := r.Category
		if cat == "" {
			cat = probe.CategoryReputational
		}
		hitsByCategory[cat] = append(hitsByCategory[cat], r)
	}

	categoryScores := make([]CategoryScore, 0, len(probe.Categories()))
	totalWeighted := 0.0
	maxPossible := 0.0

	for _, cat := range probe.Categories() {
		hits := hitsByCategory[cat]

		catRaw := 0.0
		platforms := []string{}
		warnings := []string{}
		for _, hit := range hits {
			base, ok := PlatformBaseScores[hit.Platform]
			if !ok {
				base = defaultBaseScore
			}
			dataBonus := math.Min(float64(len(hit.Data))*dataBonusPerField, maxDataBonus)
			catRaw += math.Min(base+dataBonus, maxPlatformScore)

			platforms = append(platforms, hit.Platform)
			if warning, ok := PlatformWarnings[hit.Platform]; ok {
				warnings = append(warnings, warning)
			}
		}

		normalized := 0.0
		if len(hits) > 0 {
			normalized = math.Min((catRaw/categorySaturation)*100.0, 100.0)
		}

		weight := categoryWeight(cat)
		totalWeighted += normalized * weight
		maxPossible += 100.0 * weight

		categoryScores = append(categoryScores, CategoryScore{
			Category:       string(cat),
			Score:          round1(normalized),
			Description:    Descriptions[cat],
			PlatformsFound: platforms,
			Warnings:       warnings,
		})
	}

	overall := 0.0
	if maxPossible > 0 {
		overall = round1((totalWeighted / maxPossible) * 100.0)
	}
	level := levelFor(overall)

	return &ThreatReport{
		OverallScore:    overall,
		RiskLevel:       level,
		Summary:         buildSummary(len(found), totalPlatforms, overall, level, hitsByCategory),
		Recommendations: buildRecommendations(hitsByCategory, len(found) > 0),
		CategoryScores:  categoryScores,
	}
}

func levelFor(score float64) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

func buildSummary(exposed, total int, score float64, level Level, hits map[probe.Category][]probe.Result) string {
	if exposed == 0 {
		return fmt.Sprintf(
			"Your digital footprint appears minimal across the %d platforms checked. Privacy threat score: %.1f/100.",
			total, score)
	}

	parts := []string{
		fmt.Sprintf("Scan complete. Your digital footprint was detected on %d out of %d platforms checked.", exposed, total),
		fmt.Sprintf("Overall privacy threat score: %.1f/100 (%s).", score, strings.ToUpper(string(level))),
	}

	if breaches := hits[probe.CategoryDataBreach]; len(breaches) > 0 {
		parts = append(parts, fmt.Sprintf(
			"CRITICAL: Your credentials were found in %d breach database(s). Immediate action required.", len(breaches)))
	}
	if len(hits[probe.CategoryInfrastructure]) > 0 {
		parts = append(parts,
			"Infrastructure exposure detected. Internet-facing services linked to your identity may have misconfigurations.")
	}

	return strings.Join(parts, " ")
}

// categoryRecommendations is the fixed advisory block appended per category
// with at least one hit.
var categoryRecommendations = map[probe.Category][]string{
	probe.CategoryDataBreach: {
		"Change all passwords immediately on accounts associated with breached emails.",
		"Enable multi-factor authentication on every account that supports it.",
		"Consider using a password manager to generate unique passwords per site.",
		"Review the specific breaches listed and check what data types were exposed.",
	},
	probe.CategoryInfrastructure: {
		"Audit all internet-facing services for misconfigurations and open ports.",
		"Ensure firewalls and access controls are properly configured.",
		"Close or restrict any unnecessary publicly-exposed services.",
	},
	probe.CategoryPhishing: {
		"Be vigilant against spear-phishing emails referencing your professional details.",
		"Enable email filtering and anti-phishing protections.",
		"Limit the professional information publicly visible on LinkedIn.",
	},
	probe.CategoryImpersonation: {
		"Review your Facebook privacy settings and restrict profile visibility to friends only.",
		"Search for impersonation accounts using your name and photos.",
		"Enable login alerts on all social media accounts.",
	},
	probe.CategoryStalking: {
		"Disable location tagging on photos and posts.",
		"Set social media profiles to private where possible.",
		"Review and remove old posts that reveal personal routines or locations.",
	},
	probe.CategoryReputational: {
		"Audit public posts and comments across forums for potentially damaging content.",
	},
}

func buildRecommendations(hits map[probe.Category][]probe.Result, anyFound bool) []string {
	recs := []string{}
	for _, cat := range priorityOrder {
		if len(hits[cat]) > 0 {
			recs = append(recs, categoryRecommendations[cat]...)
		}
	}

	if anyFound {
		recs = append(recs,
			"Use the takedown feature to generate GDPR/CCPA data deletion requests.",
			"Schedule regular privacy audits (recommended: quarterly).",
		)
	}

	if len(recs) == 0 {
		recs = append(recs, "No immediate actions required. Keep monitoring your digital footprint periodically.")
	}
	return recs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
