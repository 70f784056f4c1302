package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"genstudio/internal/models"
)

// EngineOther collects models whose provider could not be inferred.
const EngineOther = "other"

type engineRule struct {
	engine string
	label  string
	tokens []string
}

// Matched in order against the lowercased name and model key.
var engineRules = []engineRule{
	{engine: "kling", label: "Kling", tokens: []string{"kling"}},
	{engine: "google", label: "Google", tokens: []string{"veo", "imagen", "gemini"}},
	{engine: "openai", label: "OpenAI", tokens: []string{"sora", "gpt-image", "dall-e", "dalle"}},
	{engine: "bytedance", label: "ByteDance", tokens: []string{"seedance", "seedream"}},
	{engine: "bfl", label: "Black Forest Labs", tokens: []string{"flux"}},
	{engine: "midjourney", label: "Midjourney", tokens: []string{"midjourney"}},
	{engine: "runway", label: "Runway", tokens: []string{"runway", "gen-4", "gen4"}},
	{engine: "luma", label: "Luma", tokens: []string{"luma", "ray"}},
	{engine: "minimax", label: "MiniMax", tokens: []string{"hailuo", "minimax"}},
	{engine: "alibaba", label: "Alibaba", tokens: []string{"wan"}},
}

// InferEngine returns the model's engine, inferring it from the display name
// and model key when the field is empty.
func InferEngine(m *models.PricingModel) string {
	if engine := strings.ToLower(strings.TrimSpace(m.Engine)); engine != "" {
		return engine
	}
	haystack := strings.ToLower(m.Name + " " + m.ModelKey)
	for _, rule := range engineRules {
		for _, token := range rule.tokens {
			if containsToken(haystack, token) {
				return rule.engine
			}
		}
	}
	return EngineOther
}

// containsToken matches token at a word start so "wan" does not match
// "swan" and "ray" does not match "array".
func containsToken(haystack, token string) bool {
	for i := 0; ; {
		j := strings.Index(haystack[i:], token)
		if j < 0 {
			return false
		}
		pos := i + j
		if pos == 0 || !isAlnum(haystack[pos-1]) {
			return true
		}
		i = pos + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// EngineLabel returns the display label of an engine.
func EngineLabel(engine string) string {
	for _, rule := range engineRules {
		if rule.engine == engine {
			return rule.label
		}
	}
	if engine == EngineOther || engine == "" {
		return "Other"
	}
	r, size := utf8.DecodeRuneInString(engine)
	return string(unicode.ToTitle(r)) + engine[size:]
}

// Group is one provider section of the model picker.
type Group struct {
	Engine string
	Label  string
	Models []*models.PricingModel
}

// GroupByEngine groups models by inferred engine. Groups appear in the order
// their first model appears, with "other" last; models keep their order.
func GroupByEngine(list []*models.PricingModel) []Group {
	index := map[string]int{}
	var groups []Group
	var other *Group

	for _, m := range list {
		engine := InferEngine(m)
		if engine == EngineOther {
			if other == nil {
				other = &Group{Engine: EngineOther, Label: EngineLabel(EngineOther)}
			}
			other.Models = append(other.Models, m)
			continue
		}
		i, ok := index[engine]
		if !ok {
			i = len(groups)
			index[engine] = i
			groups = append(groups, Group{Engine: engine, Label: EngineLabel(engine)})
		}
		groups[i].Models = append(groups[i].Models, m)
	}

	if other != nil {
		groups = append(groups, *other)
	}
	return groups
}
