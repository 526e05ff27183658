// Package gate implements the sentence admissibility heuristic: a pure,
// synchronous classifier that decides whether a sentence is worth sending
// to claim extraction at all.
package gate

import (
	"regexp"
	"strings"
	"unicode"
)

// Decision is the admissibility outcome for one sentence
type Decision string

const (
	Allow  Decision = "ALLOW"
	Review Decision = "REVIEW"
	Reject Decision = "REJECT"
)

// Result carries the decision together with the additive score and the
// names of the signals that fired, for explainability.
type Result struct {
	Decision Decision `json:"decision"`
	Score    int      `json:"score"`
	Signals  []string `json:"signals"`
}

var (
	numericRe  = regexp.MustCompile(`(?i)(\d+[,.]?\d*%?)|(百分之\d+)`)
	moneyRe    = regexp.MustCompile(`(?i)\d+(\.\d+)?(亿美元|亿元|万亿元|万美元|元|美元|人民币|USD|RMB|¥)`)
	orderRe    = regexp.MustCompile(`(?i)(排名|第[一二三四五六七八九十百千]|top\s?\d)`)
	changeRe   = regexp.MustCompile(`(增长|下降|同比|环比|增加|减少|提升|下滑|涨幅|跌幅)`)
	eventRe    = regexp.MustCompile(`(宣布|发布|签署|举行|发生|达成|成立|获批|启动|完成)`)
	locationRe = regexp.MustCompile(`(?i)(位于|坐落|来自|总部|设在|located)`)
	timeRe     = regexp.MustCompile(`(?i)((19|20)\d{2})|年|月|日|季度|周|星期|Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday`)
	questionRe = regexp.MustCompile(`[?？]|^(是否|为什么)`)
	opinionRe  = regexp.MustCompile(`(我认为|看来|觉得|希望|呼吁|应该|必须|建议)`)
	urlRe      = regexp.MustCompile(`(?i)(https?://|www\.)`)
)

// Thresholds for the additive score
const (
	allowThreshold  = 3
	rejectThreshold = 0
)

// Evaluate classifies one sentence. It performs no I/O and is safe to call
// concurrently.
func Evaluate(text string) Result {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return Result{Decision: Reject, Score: -5, Signals: []string{"empty"}}
	}

	score := 0
	var signals []string
	add := func(delta int, name string) {
		score += delta
		signals = append(signals, name)
	}

	runes := []rune(clean)
	if len(runes) >= 20 {
		add(1, "length")
	}
	if urlRe.MatchString(clean) {
		add(-4, "url")
	}
	if numericRe.MatchString(clean) {
		add(2, "numeric")
	}
	if moneyRe.MatchString(clean) {
		add(1, "money")
	}
	if orderRe.MatchString(clean) {
		add(1, "order")
	}
	if changeRe.MatchString(clean) {
		add(1, "change")
	}
	if eventRe.MatchString(clean) {
		add(1, "event")
	}
	if locationRe.MatchString(clean) {
		add(1, "location")
	}
	if timeRe.MatchString(clean) {
		add(1, "time")
	}
	if questionRe.MatchString(clean) || opinionRe.MatchString(clean) {
		add(-2, "opinion")
	}
	if countWordChars(clean) < 4 {
		add(-3, "non_sentence")
	}
	if len(runes) < 8 {
		score--
	}

	decision := Review
	switch {
	case score >= allowThreshold:
		decision = Allow
	case score <= rejectThreshold:
		decision = Reject
	}

	return Result{Decision: decision, Score: score, Signals: signals}
}

// countWordChars counts Latin letters and CJK ideographs. Punctuation-only
// fragments score very low here and get rejected.
func countWordChars(s string) int {
	count := 0
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || unicode.Is(unicode.Han, r) {
			count++
		}
	}
	return count
}
