package triage

// Category 表示一条用户话语的分诊类别。
type Category string

const (
	Crisis  Category = "crisis"
	Anxiety Category = "anxiety"
	Sadness Category = "sadness"
	Neutral Category = "neutral"
)

// Categories lists every category in classification priority order.
func Categories() []Category {
	return []Category{Crisis, Anxiety, Sadness, Neutral}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Crisis, Anxiety, Sadness, Neutral:
		return true
	default:
		return false
	}
}

// ParseCategory maps a case-insensitive label to a Category.
func ParseCategory(raw string) (Category, bool) {
	c := Category(normalize(raw))
	return c, c.Valid()
}

// Lexicon is the ordered trigger phrase set of one category.
type Lexicon struct {
	Category Category
	Phrases  []string
}

// lexicons 按优先级排列：crisis 必须排在第一位。
var lexicons = []Lexicon{
	{
		Category: Crisis,
		Phrases:  []string{"suicide", "kill myself", "hurt myself", "end it all", "can't go on"},
	},
	{
		Category: Anxiety,
		Phrases:  []string{"anxious", "anxiety", "panic", "worried", "stressed", "overwhelming"},
	},
	{
		Category: Sadness,
		Phrases:  []string{"sad", "depressed", "down", "hopeless", "empty", "lonely"},
	},
}

// Lexicons returns a copy of the phrase sets in priority order. Neutral has no
// phrases and is not included.
func Lexicons() []Lexicon {
	out := make([]Lexicon, len(lexicons))
	for i, lex := range lexicons {
		out[i] = Lexicon{Category: lex.Category, Phrases: append([]string(nil), lex.Phrases...)}
	}
	return out
}

// Phrases returns the trigger phrases of a category, or nil for Neutral.
func Phrases(c Category) []string {
	for _, lex := range lexicons {
		if lex.Category == c {
			return append([]string(nil), lex.Phrases...)
		}
	}
	return nil
}
