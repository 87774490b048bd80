package spam

import (
	"fmt"
	"regexp"
	"strings"
)

// contentRule inspects lowercased text and returns the points and reasons it
// contributes. A rule that does not match returns (0, nil).
type contentRule func(text string) (int, []string)

// ContentScorer scores free text against keyword, pattern, link and
// punctuation rules. It is deterministic and safe for concurrent use.
type ContentScorer struct {
	rules []contentRule
}

// NewContentScorer returns a ContentScorer loaded with the default rule set.
// Rules run in this order, which is also the order of the returned reasons.
func NewContentScorer() *ContentScorer {
	return &ContentScorer{
		rules: []contentRule{
			ruleKeywords,
			rulePatterns,
			ruleLinkCount,
			ruleExclamations,
		},
	}
}

// Score evaluates text. Blank input yields a zero, non-spam result.
func (s *ContentScorer) Score(text string) *ContentResult {
	if isBlank(text) {
		return &ContentResult{Reasons: []string{}, Confidence: ConfidenceLow}
	}

	lower := strings.ToLower(text)
	score := 0
	reasons := []string{}
	for _, r := range s.rules {
		points, rs := r(lower)
		score += points
		reasons = append(reasons, rs...)
	}

	return &ContentResult{
		Spam:       score >= SpamThreshold,
		Score:      score,
		Reasons:    reasons,
		Confidence: confidenceFor(score),
	}
}

// ── Rules ─────────────────────────────────────────────────────────────────────

// spamKeywords are matched as plain substrings of the lowercased text.
var spamKeywords = []string{
	"buy now", "click here", "free money", "get rich quick", "make money fast",
	"viagra", "casino", "lottery", "winner", "congratulations you won",
	"urgent", "act now", "limited time", "special offer", "discount",
	"http://", "https://", "www.", ".com", ".net", ".org",
}

func ruleKeywords(text string) (int, []string) {
	score := 0
	var reasons []string
	for _, kw := range spamKeywords {
		if !strings.Contains(text, kw) {
			continue
		}
		if strings.Contains(kw, "http") {
			score += 3
		} else {
			score += 2
		}
		reasons = append(reasons, "Contains spam keyword: "+kw)
	}
	return score, reasons
}

// suspiciousPattern is one pattern category. Each category scores at most once.
type suspiciousPattern struct {
	match  func(string) bool
	reason string
}

var (
	longNumberRe = regexp.MustCompile(`\b\d{10,}\b`)
	// Runs against lowercased text, so it never matches. Kept so the category
	// list stays aligned with the published rule set.
	capitalsRe = regexp.MustCompile(`[A-Z]{5,}`)
	emailRe    = regexp.MustCompile(`@\w+\.(com|net|org|info)`)
	moneyRe    = regexp.MustCompile(`\$\d+`)
	linkRe     = regexp.MustCompile(`https?://`)
)

var suspiciousPatterns = []suspiciousPattern{
	{match: longNumberRe.MatchString, reason: "Contains suspicious number pattern"},
	{match: capitalsRe.MatchString, reason: "Contains excessive capital letters"},
	{match: hasRepeatedRun, reason: "Contains repeated characters"},
	{match: emailRe.MatchString, reason: "Contains email address"},
	{match: moneyRe.MatchString, reason: "Contains money amounts"},
}

func rulePatterns(text string) (int, []string) {
	score := 0
	var reasons []string
	for _, p := range suspiciousPatterns {
		if p.match(text) {
			score += 2
			reasons = append(reasons, p.reason)
		}
	}
	return score, reasons
}

// repeatedRunLen is the number of identical consecutive characters that counts
// as a repeated-character run.
const repeatedRunLen = 5

// hasRepeatedRun reports whether any character (newlines excluded) occurs at
// least repeatedRunLen times in a row. RE2 has no backreferences, so the
// (.)\1{4,} check is done by hand.
func hasRepeatedRun(text string) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == '\n' {
			run = 0
			continue
		}
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= repeatedRunLen {
			return true
		}
	}
	return false
}

func ruleLinkCount(text string) (int, []string) {
	n := len(linkRe.FindAllStringIndex(text, -1))
	if n <= 2 {
		return 0, nil
	}
	return 2 * n, []string{fmt.Sprintf("Contains multiple links (%d)", n)}
}

func ruleExclamations(text string) (int, []string) {
	n := strings.Count(text, "!")
	if n <= 3 {
		return 0, nil
	}
	return n, []string{fmt.Sprintf("Excessive exclamation marks (%d)", n)}
}
