package spam

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestContentScorer_blank(t *testing.T) {
	s := NewContentScorer()
	for _, in := range []string{"", "   ", "\n\t"} {
		r := s.Score(in)
		if r.Score != 0 || r.Spam || len(r.Reasons) != 0 {
			t.Errorf("Score(%q) = %+v, want zero result", in, r)
		}
		if r.Reasons == nil {
			t.Errorf("Score(%q): reasons should be empty, not nil", in)
		}
	}
}

func TestContentScorer_nilText(t *testing.T) {
	var txt Text
	r := NewContentScorer().Score(txt.ModerationText())
	if r.Score != 0 || r.Spam {
		t.Errorf("zero Text scored %+v", r)
	}
}

func TestContentScorer_buyNow(t *testing.T) {
	r := NewContentScorer().Score("Buy now! Click here for free money!")
	if !r.Spam {
		t.Error("expected spam")
	}
	if r.Score < 5 {
		t.Errorf("score = %d, want >= 5", r.Score)
	}
	if !contains(r.Reasons, "Contains spam keyword: buy now") {
		t.Errorf("reasons missing buy now: %v", r.Reasons)
	}
}

func TestContentScorer_normalContent(t *testing.T) {
	r := NewContentScorer().Score("This is a normal post about clay pottery")
	if r.Spam {
		t.Errorf("unexpected spam: %+v", r)
	}
	if r.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low", r.Confidence)
	}
}

func TestContentScorer_rules(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantScore  int
		wantReason string
	}{
		{
			name:       "multiple links",
			input:      "Check out https://example.com and https://test.com and https://spam.com",
			wantReason: "Contains multiple links (3)",
		},
		{
			name:       "exclamations",
			input:      "Amazing deal!!!! Don't miss out!!!!",
			wantReason: "Excessive exclamation marks (8)",
		},
		{
			name:       "long number",
			input:      "call me 5551234567",
			wantScore:  2,
			wantReason: "Contains suspicious number pattern",
		},
		{
			name:       "repeated characters",
			input:      "soooooo nice glaze",
			wantScore:  2,
			wantReason: "Contains repeated characters",
		},
		{
			name:       "money",
			input:      "only $20 per kiln",
			wantScore:  2,
			wantReason: "Contains money amounts",
		},
		{
			name:       "email",
			input:      "write to potter@mail.info",
			wantScore:  2,
			wantReason: "Contains email address",
		},
	}
	s := NewContentScorer()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := s.Score(tc.input)
			if !contains(r.Reasons, tc.wantReason) {
				t.Errorf("reasons = %v, want %q", r.Reasons, tc.wantReason)
			}
			if tc.wantScore != 0 && r.Score != tc.wantScore {
				t.Errorf("score = %d, want %d", r.Score, tc.wantScore)
			}
		})
	}
}

func TestContentScorer_linkKeywordsWeighThree(t *testing.T) {
	// "https://" (3) + ".com" (2); one link is below the multiple-links threshold.
	r := NewContentScorer().Score("see https://kiln.com")
	if r.Score != 5 {
		t.Errorf("score = %d, want 5 (%v)", r.Score, r.Reasons)
	}
	if !r.Spam {
		t.Error("score 5 should be spam")
	}
}

func TestContentScorer_capitalsNeverMatchAfterLowercasing(t *testing.T) {
	r := NewContentScorer().Score("AMAZING GLAZE")
	if contains(r.Reasons, "Contains excessive capital letters") {
		t.Errorf("capital letters rule fired on lowercased text: %v", r.Reasons)
	}
}

func TestContentScorer_threeKeywordsIsSpam(t *testing.T) {
	r := NewContentScorer().Score("casino lottery viagra")
	if !r.Spam || r.Score < 6 {
		t.Errorf("got %+v, want spam with score >= 6", r)
	}
}

func TestContentScorer_reasonOrder(t *testing.T) {
	in := "URGENT!!!! winner $500 https://a.net https://b.net https://c.net"
	s := NewContentScorer()
	first := s.Score(in)
	second := s.Score(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("non-deterministic result: %+v vs %+v", first, second)
	}

	want := []string{
		"Contains spam keyword: winner",
		"Contains spam keyword: urgent",
		"Contains spam keyword: https://",
		"Contains spam keyword: .net",
		"Contains money amounts",
		"Contains multiple links (3)",
		"Excessive exclamation marks (4)",
	}
	if !reflect.DeepEqual(first.Reasons, want) {
		t.Errorf("reasons =\n  %v\nwant\n  %v", first.Reasons, want)
	}
	// 2+2+3+2 keywords, 2 money, 6 links, 4 exclamations
	if first.Score != 21 {
		t.Errorf("score = %d, want 21", first.Score)
	}
	if first.Confidence != ConfidenceVeryHigh {
		t.Errorf("confidence = %s, want very_high", first.Confidence)
	}
}

func TestConfidenceBuckets(t *testing.T) {
	cases := map[int]Confidence{
		0: ConfidenceLow, 2: ConfidenceLow,
		3: ConfidenceMedium, 6: ConfidenceMedium,
		7: ConfidenceHigh, 10: ConfidenceHigh,
		11: ConfidenceVeryHigh, 40: ConfidenceVeryHigh,
	}
	for score, want := range cases {
		if got := confidenceFor(score); got != want {
			t.Errorf("confidenceFor(%d) = %s, want %s", score, got, want)
		}
	}
}

// ── Behaviour ─────────────────────────────────────────────────────────────────

type stubCounter struct {
	posts, comments int
	err             error
}

func (c *stubCounter) CountPostsSince(context.Context, uuid.UUID, time.Time) (int, error) {
	return c.posts, c.err
}

func (c *stubCounter) CountCommentsSince(context.Context, uuid.UUID, time.Time) (int, error) {
	return c.comments, c.err
}

var fixedNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestBehaviorScorer(c ActivityCounter) *BehaviorScorer {
	s := NewBehaviorScorer(c, zap.NewNop())
	s.SetClock(func() time.Time { return fixedNow })
	return s
}

func TestBehaviorScorer_nilAccount(t *testing.T) {
	r := newTestBehaviorScorer(&stubCounter{posts: 50}).Score(context.Background(), nil)
	if r.Score != 0 || r.Suspicious || len(r.Reasons) != 0 {
		t.Errorf("nil account scored %+v", r)
	}
}

func TestBehaviorScorer_establishedQuietUser(t *testing.T) {
	acct := &Account{ID: uuid.New(), CreatedAt: fixedNow.AddDate(0, -3, 0)}
	r := newTestBehaviorScorer(&stubCounter{}).Score(context.Background(), acct)
	if r.Score != 0 || r.Suspicious {
		t.Errorf("got %+v, want zero", r)
	}
}

func TestBehaviorScorer_newAccountWithWarnings(t *testing.T) {
	acct := &Account{ID: uuid.New(), CreatedAt: fixedNow.Add(-2 * time.Hour), WarningCount: 2}
	r := newTestBehaviorScorer(&stubCounter{}).Score(context.Background(), acct)
	if r.Score != 7 {
		t.Errorf("score = %d, want 7 (%v)", r.Score, r.Reasons)
	}
	if !r.Suspicious {
		t.Error("expected suspicious")
	}
	want := []string{"New account (created 2 hours ago)", "Previous warnings (2)"}
	if !reflect.DeepEqual(r.Reasons, want) {
		t.Errorf("reasons = %v, want %v", r.Reasons, want)
	}
	if r.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high", r.Confidence)
	}
}

func TestBehaviorScorer_highPostingFrequency(t *testing.T) {
	acct := &Account{ID: uuid.New(), CreatedAt: fixedNow.AddDate(-1, 0, 0)}
	r := newTestBehaviorScorer(&stubCounter{posts: 10, comments: 11}).Score(context.Background(), acct)
	if r.Score != 31 {
		t.Errorf("score = %d, want 31", r.Score)
	}
	if !contains(r.Reasons, "High posting frequency (10 posts in last hour)") {
		t.Errorf("missing posting reason: %v", r.Reasons)
	}
	if !contains(r.Reasons, "High commenting frequency (11 comments in last hour)") {
		t.Errorf("missing commenting reason: %v", r.Reasons)
	}
}

func TestBehaviorScorer_thresholdsAreExclusive(t *testing.T) {
	acct := &Account{ID: uuid.New(), CreatedAt: fixedNow.AddDate(-1, 0, 0)}
	r := newTestBehaviorScorer(&stubCounter{posts: 5, comments: 10}).Score(context.Background(), acct)
	if r.Score != 0 {
		t.Errorf("score = %d, want 0 at the thresholds", r.Score)
	}
}

func TestBehaviorScorer_counterErrorDegrades(t *testing.T) {
	acct := &Account{ID: uuid.New(), CreatedAt: fixedNow.AddDate(-1, 0, 0)}
	r := newTestBehaviorScorer(&stubCounter{posts: 99, err: errors.New("redis down")}).Score(context.Background(), acct)
	if r.Score != 0 {
		t.Errorf("score = %d, want 0 when counter fails", r.Score)
	}
}

func TestTimeAgoInWords(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second: "30 seconds",
		5 * time.Minute:  "5 minutes",
		3 * time.Hour:    "3 hours",
		50 * time.Hour:   "2 days",
	}
	for d, want := range cases {
		if got := timeAgoInWords(d); got != want {
			t.Errorf("timeAgoInWords(%s) = %q, want %q", d, got, want)
		}
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
