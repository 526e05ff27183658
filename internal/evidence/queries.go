package evidence

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
)

const (
	maxContextSnippet = 120
	maxExpandQueries  = 4
	minQueryLen       = 3
)

var queryJunkReplacer = strings.NewReplacer(
	"“", "", "”", "", `"`, "", "'", "", "<", "", ">", "",
)

// sanitizeQuery strips quotes and angle brackets and collapses whitespace
func sanitizeQuery(q string) string {
	cleaned := queryJunkReplacer.Replace(q)
	return strings.Join(strings.Fields(cleaned), " ")
}

// SanitizeQueries cleans and deduplicates a query list, dropping entries
// shorter than three characters
func SanitizeQueries(queries []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		cleaned := sanitizeQuery(q)
		if len([]rune(cleaned)) < minQueryLen || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		out = append(out, cleaned)
	}
	return out
}

// BuildFacets flattens the normalized claim fields into facet strings used
// for query synthesis and search payloads
func BuildFacets(claim model.Claim) []string {
	n := claim.Normalized
	facets := []string{n.Subject, n.Object, n.Predicate, n.Location, n.Time, n.Event}
	facets = append(facets, n.Entities...)
	facets = append(facets, n.Qualifiers...)
	for _, num := range n.Numbers {
		value := strconv.FormatFloat(num.Value, 'f', -1, 64)
		if num.Unit != "" {
			value += " " + num.Unit
		}
		facets = append(facets, value)
	}

	seen := make(map[string]bool)
	var out []string
	for _, f := range facets {
		f = strings.TrimSpace(f)
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// FallbackQueries synthesizes deterministic queries from the normalized
// claim fields. The bare claim text is always included.
func FallbackQueries(claim model.Claim, docContext string) []string {
	var pieces []string
	add := func(q string) {
		if q = sanitizeQuery(q); q != "" {
			pieces = append(pieces, q)
		}
	}

	add(claim.Text)

	n := claim.Normalized
	add(strings.TrimSpace(n.Object + " " + n.Subject + " " + n.Predicate))
	if n.Object != "" && n.Time != "" {
		add(strings.TrimSpace(n.Object + " " + n.Predicate + " " + n.Time))
	}

	if docContext != "" {
		firstLine := docContext
		if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
			firstLine = firstLine[:idx]
		}
		if runes := []rune(firstLine); len(runes) > maxContextSnippet {
			firstLine = string(runes[:maxContextSnippet])
		}
		anchor := n.Object
		if anchor == "" {
			anchor = n.Subject
		}
		add(strings.TrimSpace(anchor + " " + firstLine))
	}

	if facets := BuildFacets(claim); len(facets) > 0 {
		add(strings.Join(facets, " "))
	}

	return SanitizeQueries(pieces)
}

// expandResponse is the JSON shape the expansion prompt asks for
type expandResponse struct {
	Queries []string `json:"queries"`
}

const expandInstruction = "你是检索查询生成器。只输出 JSON 对象 {\"queries\": string[]}。针对给定主张，给出3-5个不同的搜索式，包含关键实体/谓词与必要的年份限定。不要任何解释。"

// ExpandQueries asks the model for search queries, falling back to the
// deterministic synthesis when it is unconfigured or misbehaves. The result
// is always sanitized and capped.
func ExpandQueries(ctx context.Context, client *llm.Client, modelName string, claim model.Claim, docContext string, logger *slog.Logger) []string {
	fallback := FallbackQueries(claim, docContext)

	if !client.Configured() {
		return capQueries(fallback)
	}

	payload, err := json.Marshal(map[string]any{
		"claim":      claim.Text,
		"normalized": claim.Normalized,
		"facets":     BuildFacets(claim),
	})
	if err != nil {
		if logger != nil {
			logger.Warn("encode expansion payload", slog.Any("error", err))
		}
		return capQueries(fallback)
	}

	resp := llm.CallJSON(ctx, client, []llm.Message{
		{Role: llm.RoleSystem, Content: expandInstruction},
		{Role: llm.RoleUser, Content: string(payload)},
	}, expandResponse{Queries: fallback}, modelName)

	queries := SanitizeQueries(resp.Queries)
	if len(queries) == 0 {
		queries = fallback
	}
	return capQueries(queries)
}

func capQueries(queries []string) []string {
	if len(queries) > maxExpandQueries {
		return queries[:maxExpandQueries]
	}
	return queries
}
