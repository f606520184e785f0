package core

// MemoryContext is the per-turn memory snapshot handed to prompt
// assembly. Constructed by retrieval, consumed once, then discarded.
type MemoryContext struct {
	HardRules []string
	SoftFacts []string
}

// ExtractionResult holds what the extraction stage distilled from the
// latest user turn.
type ExtractionResult struct {
	HardRules []string `json:"hard_rules"`
	SoftFacts []string `json:"soft_facts"`
}

func (r ExtractionResult) Empty() bool {
	return len(r.HardRules) == 0 && len(r.SoftFacts) == 0
}
