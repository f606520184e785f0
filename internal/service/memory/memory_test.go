package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/omnimind/internal/core"
)

type fakeRules struct {
	rules   []core.HardRule
	listErr error
}

func (f *fakeRules) AddRule(ctx context.Context, content string) (string, error) {
	id := fmt.Sprintf("rule-%d", len(f.rules)+1)
	f.rules = append(f.rules, core.HardRule{ID: id, Content: content, IsActive: true})
	return id, nil
}

func (f *fakeRules) ListRules(ctx context.Context) ([]core.HardRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var active []core.HardRule
	for _, r := range f.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (f *fakeRules) ListAllRules(ctx context.Context) ([]core.HardRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rules, nil
}

func (f *fakeRules) DeleteRule(ctx context.Context, id string) error {
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRules) SetRuleActive(ctx context.Context, id string, active bool) error {
	for i := range f.rules {
		if f.rules[i].ID == id {
			f.rules[i].IsActive = active
		}
	}
	return nil
}

type fakeVector struct {
	stored    [][]string
	found     []string
	searchErr error
	storeErr  error
}

func (f *fakeVector) Store(ctx context.Context, facts []string, userKey, sessionID string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, facts)
	return nil
}

func (f *fakeVector) Search(ctx context.Context, query, userKey string) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.found, nil
}

type scriptedProvider struct {
	reply   string
	err     error
	lastMsg []core.Message
	opts    core.ChatOptions
}

func (p *scriptedProvider) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	p.lastMsg = history
	p.opts = opts
	if p.err != nil {
		return core.Message{}, p.err
	}
	return core.Message{Role: core.RoleAssistant, Content: p.reply}, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []core.Message, opts core.ChatOptions) (<-chan core.Delta, error) {
	return nil, errors.New("not implemented")
}

func TestRetrieveContextMergesBothTiers(t *testing.T) {
	rules := &fakeRules{rules: []core.HardRule{
		{ID: "r1", Content: "always answer in Polish", IsActive: true},
		{ID: "r2", Content: "never use emoji", IsActive: false},
	}}
	vector := &fakeVector{found: []string{"User likes hiking"}}

	svc := NewService(rules, vector)
	mc := svc.RetrieveContext(context.Background(), "what should I do this weekend", "user-1")

	assert.Equal(t, []string{"always answer in Polish"}, mc.HardRules)
	assert.Equal(t, []string{"User likes hiking"}, mc.SoftFacts)
}

func TestRetrieveContextDegradesPerTier(t *testing.T) {
	t.Run("rules failure leaves soft facts intact", func(t *testing.T) {
		rules := &fakeRules{listErr: errors.New("disk gone")}
		vector := &fakeVector{found: []string{"User likes hiking"}}

		mc := NewService(rules, vector).RetrieveContext(context.Background(), "q", "u")
		assert.Empty(t, mc.HardRules)
		assert.Equal(t, []string{"User likes hiking"}, mc.SoftFacts)
	})

	t.Run("vector failure leaves rules intact", func(t *testing.T) {
		rules := &fakeRules{rules: []core.HardRule{{ID: "r1", Content: "be brief", IsActive: true}}}
		vector := &fakeVector{searchErr: errors.New("timeout")}

		mc := NewService(rules, vector).RetrieveContext(context.Background(), "q", "u")
		assert.Equal(t, []string{"be brief"}, mc.HardRules)
		assert.Empty(t, mc.SoftFacts)
	})

	t.Run("unconfigured vector store is silent", func(t *testing.T) {
		rules := &fakeRules{}
		vector := &fakeVector{searchErr: core.ErrNotConfigured}

		mc := NewService(rules, vector).RetrieveContext(context.Background(), "q", "u")
		assert.Empty(t, mc.SoftFacts)
	})
}

func TestRuleCRUDWrapsStoreErrors(t *testing.T) {
	svc := NewService(&fakeRules{listErr: errors.New("boom")}, &fakeVector{})

	_, err := svc.ListHardRules(context.Background())
	var storeErr *core.MemoryStoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list rules", storeErr.Op)
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("no memory", func(t *testing.T) {
		prompt := BuildSystemPrompt(core.MemoryContext{})
		assert.NotContains(t, prompt, "rules")
		assert.NotContains(t, prompt, "facts")
	})

	t.Run("joins tiers with pipe separator", func(t *testing.T) {
		prompt := BuildSystemPrompt(core.MemoryContext{
			HardRules: []string{"always answer in Polish", "never use emoji"},
			SoftFacts: []string{"User likes hiking", "User lives in Kraków"},
		})
		assert.Contains(t, prompt, "always answer in Polish | never use emoji")
		assert.Contains(t, prompt, "User likes hiking | User lives in Kraków")
	})
}

func TestExtractorPersistsFindings(t *testing.T) {
	rules := &fakeRules{}
	vector := &fakeVector{}
	provider := &scriptedProvider{reply: `{"hard_rules": ["always answer in Polish"], "soft_facts": ["User likes hiking"]}`}

	ex := NewExtractor(provider, &scriptedProvider{err: errors.New("advanced should not be used")}, NewService(rules, vector))
	result := ex.Extract(context.Background(), "od teraz odpowiadaj po polsku, btw lubię wędrówki", "user-1", "session-1", "")

	assert.Equal(t, []string{"always answer in Polish"}, result.HardRules)
	assert.Equal(t, []string{"User likes hiking"}, result.SoftFacts)

	require.Len(t, rules.rules, 1)
	assert.Equal(t, "always answer in Polish", rules.rules[0].Content)
	require.Len(t, vector.stored, 1)
	assert.Equal(t, []string{"User likes hiking"}, vector.stored[0])

	// Extraction runs without reasoning and asks for JSON.
	assert.True(t, provider.opts.DisableReasoning)
	assert.True(t, provider.opts.JSONResponse)
}

func TestExtractorRoutesImageTurnsToAdvancedModel(t *testing.T) {
	fast := &scriptedProvider{err: errors.New("fast should not be used")}
	advanced := &scriptedProvider{reply: `{"hard_rules": [], "soft_facts": ["User owns a tabby cat"]}`}

	ex := NewExtractor(fast, advanced, NewService(&fakeRules{}, &fakeVector{}))
	result := ex.Extract(context.Background(), "look at my cat", "user-1", "session-1", "data:image/png;base64,AAAA")

	assert.Equal(t, []string{"User owns a tabby cat"}, result.SoftFacts)
	require.NotEmpty(t, advanced.lastMsg)
	assert.Equal(t, "data:image/png;base64,AAAA", advanced.lastMsg[1].Image)
}

func TestExtractorPromptCoversImages(t *testing.T) {
	t.Run("image turns get the description directive", func(t *testing.T) {
		advanced := &scriptedProvider{reply: `{"hard_rules": [], "soft_facts": []}`}
		ex := NewExtractor(&scriptedProvider{}, advanced, NewService(&fakeRules{}, &fakeVector{}))

		ex.Extract(context.Background(), "look at my cat", "u", "s", "data:image/png;base64,AAAA")
		require.Len(t, advanced.lastMsg, 2)
		assert.Contains(t, advanced.lastMsg[1].Content, "An image is attached")
		assert.Contains(t, advanced.lastMsg[1].Content, `"soft_facts"`)
	})

	t.Run("text turns do not", func(t *testing.T) {
		fast := &scriptedProvider{reply: `{"hard_rules": [], "soft_facts": []}`}
		ex := NewExtractor(fast, &scriptedProvider{}, NewService(&fakeRules{}, &fakeVector{}))

		ex.Extract(context.Background(), "hello", "u", "s", "")
		require.Len(t, fast.lastMsg, 2)
		assert.NotContains(t, fast.lastMsg[1].Content, "An image is attached")
	})

	t.Run("image-only turns carry a fallback message", func(t *testing.T) {
		advanced := &scriptedProvider{reply: `{"hard_rules": [], "soft_facts": []}`}
		ex := NewExtractor(&scriptedProvider{}, advanced, NewService(&fakeRules{}, &fakeVector{}))

		ex.Extract(context.Background(), "  ", "u", "s", "data:image/png;base64,AAAA")
		require.Len(t, advanced.lastMsg, 2)
		assert.Contains(t, advanced.lastMsg[1].Content, "Extract information from this image.")
	})
}

func TestExtractorSwallowsFailures(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		ex := NewExtractor(&scriptedProvider{err: errors.New("rate limited")}, &scriptedProvider{}, NewService(&fakeRules{}, &fakeVector{}))
		result := ex.Extract(context.Background(), "hello", "u", "s", "")
		assert.True(t, result.Empty())
	})

	t.Run("malformed response", func(t *testing.T) {
		ex := NewExtractor(&scriptedProvider{reply: "I could not find anything."}, &scriptedProvider{}, NewService(&fakeRules{}, &fakeVector{}))
		result := ex.Extract(context.Background(), "hello", "u", "s", "")
		assert.True(t, result.Empty())
	})
}

func TestParseExtractionResponseToleratesFences(t *testing.T) {
	content := "Here you go:\n```json\n{\"hard_rules\": [\"be brief\"], \"soft_facts\": []}\n```"
	result, err := parseExtractionResponse(content)
	require.NoError(t, err)
	assert.Equal(t, []string{"be brief"}, result.HardRules)

	_, err = parseExtractionResponse("no json here")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no JSON object"))
}
