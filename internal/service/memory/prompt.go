package memory

import (
	"fmt"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
)

const basePersona = `You are a helpful, knowledgeable assistant. Be direct and concise. When you are unsure, say so instead of guessing.`

// BuildSystemPrompt folds the memory snapshot into the system message.
// Both tiers are flattened into single " | " separated lines so they
// occupy a predictable amount of the context window.
func BuildSystemPrompt(mc core.MemoryContext) string {
	var b strings.Builder
	b.WriteString(basePersona)

	if len(mc.HardRules) > 0 {
		b.WriteString("\n\nUser-defined rules you MUST always follow: ")
		b.WriteString(strings.Join(mc.HardRules, " | "))
	}
	if len(mc.SoftFacts) > 0 {
		b.WriteString("\n\nRelevant facts about the user from previous conversations: ")
		b.WriteString(strings.Join(mc.SoftFacts, " | "))
	}
	return b.String()
}

const extractionSystemPrompt = `You are a memory extraction system. Output only valid JSON.`

const imageDirective = `
An image is attached. Describe its key technical or personal content and include that description in "soft_facts".`

func buildExtractionPrompt(message string, withImage bool) string {
	directive := ""
	if withImage {
		directive = imageDirective
	}
	return fmt.Sprintf(`Analyze the user message and extract memorable information.

Output a JSON object with exactly two keys:
- "hard_rules": explicit standing instructions about how the assistant must behave from now on (e.g. "always answer in Polish", "never use emoji"). Only include items the user clearly states as a permanent rule.
- "soft_facts": stable personal facts worth remembering (preferences, background, projects, relationships). Each fact must be self-contained: replace pronouns with "User".

Ignore greetings, small talk and one-off requests. When nothing qualifies, return {"hard_rules": [], "soft_facts": []}.%s

User message: %s`, directive, message)
}
