package automation

import "strings"

// ExcludedKeyword returns the first keyword found in text, comparing both
// sides lower-cased. Blank keywords never match.
func ExcludedKeyword(text string, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			return kw, true
		}
	}
	return "", false
}
