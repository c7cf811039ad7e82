package moderation

import "strings"

// ReasonProfanity is reported for blocklisted content.
const ReasonProfanity = "profanity"

// DefaultBlocklist is used when no blocklist is configured.
var DefaultBlocklist = []string{"badword1", "badword2"}

// Result is the outcome of moderating one message.
type Result struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// Gate flags messages containing any blocklisted term, case-insensitively.
type Gate struct {
	blocklist []string
}

func NewGate(blocklist []string) *Gate {
	if len(blocklist) == 0 {
		blocklist = DefaultBlocklist
	}
	terms := make([]string, 0, len(blocklist))
	for _, term := range blocklist {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return &Gate{blocklist: terms}
}

func (g *Gate) Moderate(text string) Result {
	lower := strings.ToLower(text)
	for _, term := range g.blocklist {
		if strings.Contains(lower, term) {
			return Result{Flagged: true, Reason: ReasonProfanity}
		}
	}
	return Result{}
}
