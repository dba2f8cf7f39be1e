package risk_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/risk"
)

func foundResult(platform string, cat probe.Category, dataFields int) probe.Result {
	var data map[string]any
	if dataFields > 0 {
		data = make(map[string]any, dataFields)
		for i := 0; i < dataFields; i++ {
			data[string(rune('a'+i))] = "x"
		}
	}
	return probe.Result{
		Platform: platform,
		URL:      "https://example.com/profile",
		Found:    true,
		Data:     data,
		Category: cat,
	}
}

func missResult(platform string, cat probe.Category) probe.Result {
	return probe.Result{Platform: platform, Category: cat}
}

func TestScoreZeroExposure(t *testing.T) {
	results := []probe.Result{
		missResult("Facebook", probe.CategoryImpersonation),
		missResult("HaveIBeenPwned", probe.CategoryDataBreach),
		missResult("GitHub", probe.CategoryReputational),
	}

	report := risk.Score(results)

	if report.OverallScore != 0 {
		t.Errorf("OverallScore = %v, want 0", report.OverallScore)
	}
	if report.RiskLevel != risk.LevelLow {
		t.Errorf("RiskLevel = %v, want %v", report.RiskLevel, risk.LevelLow)
	}

	wantSummary := "Your digital footprint appears minimal across the 3 platforms checked. Privacy threat score: 0.0/100."
	if report.Summary != wantSummary {
		t.Errorf("Summary = %q, want %q", report.Summary, wantSummary)
	}

	if len(report.Recommendations) != 1 ||
		!strings.HasPrefix(report.Recommendations[0], "No immediate actions required") {
		t.Errorf("Recommendations = %v, want single no-action item", report.Recommendations)
	}

	if len(report.CategoryScores) != 6 {
		t.Fatalf("CategoryScores has %d entries, want 6", len(report.CategoryScores))
	}
	for _, cs := range report.CategoryScores {
		if cs.Score != 0 {
			t.Errorf("category %s score = %v, want 0", cs.Category, cs.Score)
		}
		if cs.PlatformsFound == nil || cs.Warnings == nil {
			t.Errorf("category %s has nil slices, want empty slices", cs.Category)
		}
		if cs.Description == "" {
			t.Errorf("category %s missing description", cs.Category)
		}
	}
}

func TestScoreCategoryOrderIsFixed(t *testing.T) {
	report := risk.Score(nil)

	want := []string{
		"IMPERSONATION", "PHISHING", "STALKING",
		"REPUTATIONAL", "DATA_BREACH", "INFRASTRUCTURE",
	}
	if len(report.CategoryScores) != len(want) {
		t.Fatalf("CategoryScores has %d entries, want %d", len(report.CategoryScores), len(want))
	}
	for i, cs := range report.CategoryScores {
		if cs.Category != want[i] {
			t.Errorf("CategoryScores[%d] = %s, want %s", i, cs.Category, want[i])
		}
	}
}

func TestScoreSingleBreachHit(t *testing.T) {
	results := []probe.Result{
		foundResult("HaveIBeenPwned", probe.CategoryDataBreach, 0),
		missResult("Facebook", probe.CategoryImpersonation),
	}

	report := risk.Score(results)

	// Base score 9.5 normalized against saturation 30, weighted 0.30.
	if report.OverallScore != 9.5 {
		t.Errorf("OverallScore = %v, want 9.5", report.OverallScore)
	}
	if report.RiskLevel != risk.LevelLow {
		t.Errorf("RiskLevel = %v, want %v", report.RiskLevel, risk.LevelLow)
	}

	var breach *risk.CategoryScore
	for i := range report.CategoryScores {
		if report.CategoryScores[i].Category == "DATA_BREACH" {
			breach = &report.CategoryScores[i]
		}
	}
	if breach == nil {
		t.Fatal("DATA_BREACH category missing from report")
	}
	if breach.Score != 31.7 {
		t.Errorf("DATA_BREACH score = %v, want 31.7", breach.Score)
	}
	if !reflect.DeepEqual(breach.PlatformsFound, []string{"HaveIBeenPwned"}) {
		t.Errorf("DATA_BREACH platforms = %v", breach.PlatformsFound)
	}
	if len(breach.Warnings) != 1 {
		t.Errorf("DATA_BREACH warnings = %v, want one entry", breach.Warnings)
	}

	if !strings.Contains(report.Summary, "CRITICAL: Your credentials were found in 1 breach database(s).") {
		t.Errorf("Summary missing breach warning: %q", report.Summary)
	}

	// Four breach recommendations plus the two general items.
	if len(report.Recommendations) != 6 {
		t.Errorf("Recommendations has %d items, want 6: %v", len(report.Recommendations), report.Recommendations)
	}
	if !strings.Contains(report.Recommendations[0], "Change all passwords immediately") {
		t.Errorf("first recommendation = %q, want breach advice first", report.Recommendations[0])
	}
}

func TestScoreDataBonusIsCapped(t *testing.T) {
	// Seven data fields exceed the bonus cap; 9.5 + 2.0 then clamps to the
	// per-platform ceiling of 10.
	results := []probe.Result{
		foundResult("HaveIBeenPwned", probe.CategoryDataBreach, 7),
	}

	report := risk.Score(results)

	if report.OverallScore != 10.0 {
		t.Errorf("OverallScore = %v, want 10.0", report.OverallScore)
	}
}

func TestScoreUnknownPlatformUsesDefaults(t *testing.T) {
	// Unknown platform with no category: base score 5.0, attributed to
	// REPUTATIONAL.
	results := []probe.Result{
		{Platform: "Mystery", Found: true},
	}

	report := risk.Score(results)

	var reput *risk.CategoryScore
	for i := range report.CategoryScores {
		if report.CategoryScores[i].Category == "REPUTATIONAL" {
			reput = &report.CategoryScores[i]
		}
	}
	if reput == nil {
		t.Fatal("REPUTATIONAL category missing from report")
	}
	if reput.Score != 16.7 {
		t.Errorf("REPUTATIONAL score = %v, want 16.7", reput.Score)
	}
	if report.OverallScore != 0.8 {
		t.Errorf("OverallScore = %v, want 0.8", report.OverallScore)
	}
}

func TestScoreBroadExposure(t *testing.T) {
	results := []probe.Result{
		foundResult("HaveIBeenPwned", probe.CategoryDataBreach, 0),
		foundResult("Dehashed", probe.CategoryDataBreach, 0),
		foundResult("Shodan", probe.CategoryInfrastructure, 0),
		foundResult("LinkedIn", probe.CategoryPhishing, 0),
		foundResult("Facebook", probe.CategoryImpersonation, 0),
		foundResult("Instagram", probe.CategoryStalking, 0),
		foundResult("TikTok", probe.CategoryStalking, 0),
		foundResult("Snapchat", probe.CategoryStalking, 0),
		foundResult("Twitter/X", probe.CategoryReputational, 0),
		foundResult("Pinterest", probe.CategoryReputational, 0),
		foundResult("GitHub", probe.CategoryReputational, 0),
		foundResult("Gravatar", probe.CategoryReputational, 0),
		missResult("Medium", probe.CategoryReputational),
	}

	report := risk.Score(results)

	if report.OverallScore != 41.5 {
		t.Errorf("OverallScore = %v, want 41.5", report.OverallScore)
	}
	if report.RiskLevel != risk.LevelMedium {
		t.Errorf("RiskLevel = %v, want %v", report.RiskLevel, risk.LevelMedium)
	}
	if !strings.Contains(report.Summary, "detected on 12 out of 13 platforms") {
		t.Errorf("Summary = %q", report.Summary)
	}
	if !strings.Contains(report.Summary, "Infrastructure exposure detected.") {
		t.Errorf("Summary missing infrastructure warning: %q", report.Summary)
	}

	// Priority order: breach advice first, reputational last before the
	// general items.
	if !strings.Contains(report.Recommendations[0], "Change all passwords") {
		t.Errorf("first recommendation = %q", report.Recommendations[0])
	}
	last := report.Recommendations[len(report.Recommendations)-1]
	if !strings.Contains(last, "quarterly") {
		t.Errorf("last recommendation = %q", last)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	results := []probe.Result{
		foundResult("HaveIBeenPwned", probe.CategoryDataBreach, 3),
		foundResult("Facebook", probe.CategoryImpersonation, 2),
		missResult("GitHub", probe.CategoryReputational),
	}

	first := risk.Score(results)
	second := risk.Score(results)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Score is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestScoreMoreExposureNeverLowersScore(t *testing.T) {
	// Same result set, with one miss flipped to a hit in place.
	base := []probe.Result{
		foundResult("Facebook", probe.CategoryImpersonation, 0),
		missResult("Instagram", probe.CategoryStalking),
		missResult("HaveIBeenPwned", probe.CategoryDataBreach),
	}
	for i := 1; i < len(base); i++ {
		more := append([]probe.Result{}, base...)
		more[i] = foundResult(more[i].Platform, more[i].Category, 0)

		baseScore := risk.Score(base).OverallScore
		moreScore := risk.Score(more).OverallScore
		if moreScore < baseScore {
			t.Errorf("flipping %s to found dropped the score: %v -> %v",
				more[i].Platform, baseScore, moreScore)
		}
	}
}
