package claims

import (
	"regexp"
	"unicode"

	"github.com/google/uuid"

	"github.com/checkai/checkai/internal/model"
)

var claimURLRe = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)

// sanitizeClaims coerces the model's raw claims into valid Claim records.
// Required fields fall back to the matching heuristic claim; optional fields
// survive only when present and non-empty; malformed array entries are
// filtered; ids are reassigned on absence or collision; claims whose final
// text is a URL or has fewer than 3 word characters are dropped.
//
// The id generator is injected so the function stays pure: identical raw
// input with the same generator yields identical sanitized output.
func sanitizeClaims(raw []rawClaim, fallback []model.Claim, newID func() string) []model.Claim {
	if newID == nil {
		newID = uuid.NewString
	}
	safeFallback := fallback
	if len(safeFallback) == 0 {
		safeFallback = []model.Claim{defaultFallbackClaim()}
	}

	seenIDs := make(map[string]bool)
	out := make([]model.Claim, 0, len(raw))

	for idx, rc := range raw {
		fb := safeFallback[idx%len(safeFallback)]

		claim := model.Claim{
			Text:        pick(rc.Text.trimmed(), fb.Text),
			Checkworthy: fb.Checkworthy,
			Confidence:  fb.Confidence,
			SourceSpan:  fb.SourceSpan,
			Normalized: model.NormalizedClaim{
				Subject:   pick(rc.Normalized.Subject.trimmed(), fb.Normalized.Subject),
				Predicate: pick(rc.Normalized.Predicate.trimmed(), fb.Normalized.Predicate),
				Object:    pick(rc.Normalized.Object.trimmed(), fb.Normalized.Object),
			},
		}

		if rc.Checkworthy.Set {
			claim.Checkworthy = rc.Checkworthy.Value
		}
		if rc.Confidence.Set {
			claim.Confidence = model.ClampConfidence(rc.Confidence.Value)
		}
		if rc.SourceSpan != nil && rc.SourceSpan.valid() {
			claim.SourceSpan = rc.SourceSpan.span()
		}

		claim.Normalized.Time = rc.Normalized.Time.trimmed()
		claim.Normalized.Unit = rc.Normalized.Unit.trimmed()
		claim.Normalized.Location = rc.Normalized.Location.trimmed()
		claim.Normalized.Event = rc.Normalized.Event.trimmed()
		claim.Normalized.Entities = cleanStrings(rc.Normalized.Entities)
		claim.Normalized.Qualifiers = cleanStrings(rc.Normalized.Qualifiers)
		claim.Normalized.Numbers = cleanNumbers(rc.Normalized.Numbers)
		claim.SearchQueries = cleanStrings(rc.SearchQueries)

		id := rc.ID.trimmed()
		if id == "" || seenIDs[id] {
			id = newID()
		}
		seenIDs[id] = true
		claim.ID = id

		if !acceptableText(claim.Text) {
			continue
		}
		out = append(out, claim)
	}

	return out
}

// acceptableText rejects URLs, empty strings and fragments with fewer than
// three word characters
func acceptableText(text string) bool {
	if text == "" || claimURLRe.MatchString(text) {
		return false
	}
	count := 0
	for _, r := range text {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || unicode.Is(unicode.Han, r) {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func cleanStrings(items []looseString) []string {
	var out []string
	for _, item := range items {
		if s := item.trimmed(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanNumbers keeps entries with a finite value; unknown qualifiers are
// dropped from the entry rather than dropping the entry itself
func cleanNumbers(items []rawNumber) []model.ClaimNumber {
	var out []model.ClaimNumber
	for _, item := range items {
		if !item.Value.Set {
			continue
		}
		n := model.ClaimNumber{
			Key:   item.Key.trimmed(),
			Value: item.Value.Value,
			Unit:  item.Unit.trimmed(),
		}
		if q := model.NumberQualifier(item.Qualifier.trimmed()); q.IsValid() {
			n.Qualifier = q
		}
		out = append(out, n)
	}
	return out
}

func defaultFallbackClaim() model.Claim {
	return model.Claim{
		ID:   uuid.NewString(),
		Text: "未提供陈述",
		Normalized: model.NormalizedClaim{
			Subject:   "主体未知",
			Predicate: "提出主张",
			Object:    "未提供陈述",
		},
		Checkworthy: true,
		Confidence:  0.4,
		SourceSpan:  model.SourceSpan{},
	}
}
