package triage

import "strings"

// Decision 给出分类结果以及命中的触发短语。
type Decision struct {
	Category Category `json:"category"`
	Trigger  string   `json:"trigger,omitempty"`
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

func normalize(text string) string {
	return apostrophes.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// Classify maps an utterance to exactly one category.
func Classify(utterance string) Category {
	return Analyze(utterance).Category
}

// Analyze runs the priority-ordered substring match and reports the first
// phrase that fired. Matching is plain containment, so "sad" also fires
// inside "sadly".
func Analyze(utterance string) Decision {
	normalized := normalize(utterance)
	if normalized == "" {
		return Decision{Category: Neutral}
	}

	for _, lex := range lexicons {
		for _, phrase := range lex.Phrases {
			if strings.Contains(normalized, phrase) {
				return Decision{Category: lex.Category, Trigger: phrase}
			}
		}
	}

	return Decision{Category: Neutral}
}
