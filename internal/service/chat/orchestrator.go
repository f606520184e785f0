// Package chat orchestrates one conversational turn: memory retrieval,
// prompt assembly, streamed generation with tool calls, persistence and
// background memory extraction, all multiplexed onto one tagged byte
// stream.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/internal/service/memory"
	"github.com/sandevgo/omnimind/internal/stream"
	"github.com/sandevgo/omnimind/pkg/log"
)

const maxToolIterations = 10

type Orchestrator struct {
	provider  core.AIProvider
	fast      core.AIProvider
	tools     core.ToolProvider // optional
	memory    *memory.Service
	extractor *memory.Extractor
	history   core.HistoryRepository
	sessions  core.SessionsRepository

	windowSize  int
	tokenBudget int
	countTokens TokenCounter
}

type Deps struct {
	Provider  core.AIProvider
	Fast      core.AIProvider
	Tools     core.ToolProvider
	Memory    *memory.Service
	Extractor *memory.Extractor
	History   core.HistoryRepository
	Sessions  core.SessionsRepository

	WindowSize  int
	TokenBudget int
	// CountTokens defaults to the cl100k_base tokenizer.
	CountTokens TokenCounter
}

func NewOrchestrator(d Deps) *Orchestrator {
	counter := d.CountTokens
	if counter == nil {
		counter = DefaultTokenCounter
	}
	return &Orchestrator{
		provider:    d.Provider,
		fast:        d.Fast,
		tools:       d.Tools,
		memory:      d.Memory,
		extractor:   d.Extractor,
		history:     d.History,
		sessions:    d.Sessions,
		windowSize:  d.WindowSize,
		tokenBudget: d.TokenBudget,
		countTokens: counter,
	}
}

// Run executes one turn and emits the tagged substream chunks into
// sink. The turn does not return until background extraction has
// finished, so a completed call means memory writes are settled.
func (o *Orchestrator) Run(ctx context.Context, req core.TurnRequest, sink stream.Emitter) error {
	logger := log.FromCtx(ctx)

	// Persistence and extraction must survive a client disconnect:
	// a dropped connection cancels ctx but not the turn's writes.
	bg := context.WithoutCancel(ctx)

	// Extraction starts before generation so both overlap; the result
	// is joined at the end of the turn.
	extracted := make(chan core.ExtractionResult, 1)
	go func() {
		extracted <- o.extractor.Extract(bg, req.Message, req.UserKey(), req.SessionID, req.Image)
	}()
	defer func() {
		<-extracted
	}()

	// History is loaded before the new user turn is persisted, so the
	// prompt never carries the message twice.
	turns, err := o.history.GetTurns(ctx, req.SessionID, o.windowSize)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load history, starting fresh")
		turns = nil
	}
	firstTurn := len(turns) == 0

	mc := o.memory.RetrieveContext(ctx, req.Message, req.UserKey())

	if err := o.sessions.Touch(bg, req.SessionID); err != nil {
		logger.Warn().Err(err).Msg("failed to touch session")
	}
	o.persistTurn(bg, core.Turn{
		SessionID: req.SessionID,
		Role:      core.RoleUser,
		Content:   persistedUserContent(req),
	})

	working := o.assemblePrompt(mc, trimToBudget(turns, o.tokenBudget, o.countTokens), req)

	content, thought, genErr := o.generate(ctx, bg, req.SessionID, working, req.Reasoning, sink)
	if genErr != nil {
		logger.Error().Err(genErr).Msg("generation failed")
		// The stream may already carry partial output; the error is
		// delivered inline on the content substream.
		if err := sink.Emit(stream.ChannelContent, fmt.Sprintf("\n\n[API error: %v]\n", genErr)); err != nil {
			return err
		}
	}

	if content != "" || thought != "" {
		o.persistTurn(bg, core.Turn{
			SessionID: req.SessionID,
			Role:      core.RoleAssistant,
			Content:   content,
			Thought:   thought,
		})
	}

	if firstTurn && genErr == nil {
		o.setTitle(ctx, bg, req, sink)
	}
	return nil
}

func persistedUserContent(req core.TurnRequest) string {
	if req.Image != "" {
		return "[Image] " + req.Message
	}
	return req.Message
}

func (o *Orchestrator) assemblePrompt(mc core.MemoryContext, turns []core.Turn, req core.TurnRequest) []core.Message {
	messages := make([]core.Message, 0, len(turns)+2)
	messages = append(messages, core.Message{
		Role:    core.RoleSystem,
		Content: memory.BuildSystemPrompt(mc),
	})
	for _, t := range turns {
		messages = append(messages, core.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, core.Message{
		Role:    core.RoleUser,
		Content: req.Message,
		Image:   req.Image,
	})
	return messages
}

// generate runs the model, streaming thought and content chunks into
// sink and resolving tool calls until the model answers in prose. Tool
// traffic is persisted to history on the detached context; the blank
// content of the call row and the tool role keep those rows out of
// prompt history reads.
func (o *Orchestrator) generate(ctx, bg context.Context, sessionID string, working []core.Message, reasoning bool, sink stream.Emitter) (content, thought string, err error) {
	opts := core.ChatOptions{DisableReasoning: !reasoning}
	if o.tools != nil {
		tools, err := o.tools.GetTools(ctx)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to list tools, generating without them")
		} else {
			opts.Tools = tools
		}
	}

	var contentB, thoughtB strings.Builder

	for iteration := 0; ; iteration++ {
		calls, err := o.streamOnce(ctx, working, opts, sink, &contentB, &thoughtB)
		if err != nil {
			return contentB.String(), thoughtB.String(), err
		}
		if len(calls) == 0 || o.tools == nil {
			break
		}
		if iteration >= maxToolIterations {
			log.FromCtx(ctx).Warn().Int("iterations", iteration).Msg("tool iteration limit reached")
			break
		}

		working = append(working, core.Message{
			Role:      core.RoleAssistant,
			ToolCalls: calls,
		})
		o.persistTurn(bg, core.Turn{
			SessionID: sessionID,
			Role:      core.RoleAssistant,
			Content:   "",
		})
		working = append(working, o.executeTools(ctx, bg, sessionID, calls, sink)...)
	}

	return contentB.String(), thoughtB.String(), nil
}

// streamOnce consumes one provider stream, forwarding text deltas and
// accumulating tool call fragments by index.
func (o *Orchestrator) streamOnce(ctx context.Context, working []core.Message, opts core.ChatOptions, sink stream.Emitter, contentB, thoughtB *strings.Builder) ([]core.ToolCall, error) {
	deltas, err := o.provider.ChatStream(ctx, working, opts)
	if err != nil {
		return nil, err
	}

	var pending []core.ToolCall

	for delta := range deltas {
		switch delta.Kind {
		case core.DeltaReasoning:
			thoughtB.WriteString(delta.Text)
			if err := sink.Emit(stream.ChannelThought, delta.Text); err != nil {
				return nil, err
			}
		case core.DeltaContent:
			contentB.WriteString(delta.Text)
			if err := sink.Emit(stream.ChannelContent, delta.Text); err != nil {
				return nil, err
			}
		case core.DeltaToolCall:
			pending = mergeToolCallFragments(pending, delta.ToolCalls)
		case core.DeltaError:
			return nil, delta.Err
		case core.DeltaDone:
			// Channel closes right after; nothing to do.
		}
	}

	return pending, nil
}

// mergeToolCallFragments concatenates streamed fragments into complete
// calls. Fragments sharing an index belong to the same call.
func mergeToolCallFragments(calls []core.ToolCall, fragments []core.ToolCallDelta) []core.ToolCall {
	for _, f := range fragments {
		for len(calls) <= f.Index {
			calls = append(calls, core.ToolCall{Type: "function"})
		}
		c := &calls[f.Index]
		c.ID += f.ID
		c.Function.Name += f.Name
		c.Function.Arguments += f.Arguments
	}
	return calls
}

// executeTools runs each requested call and returns the tool result
// messages for the next model round. Failures become tool output, so
// the model can react instead of the turn dying. Each result is also
// persisted as a tool-role history row.
func (o *Orchestrator) executeTools(ctx, bg context.Context, sessionID string, calls []core.ToolCall, sink stream.Emitter) []core.Message {
	results := make([]core.Message, 0, len(calls))
	for _, call := range calls {
		if err := sink.Emit(stream.ChannelStatus, fmt.Sprintf("executing: %s", call.Function.Name)); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to emit tool status")
		}

		output, err := o.tools.CallTool(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			output = fmt.Sprintf("Error: %v", err)
		}
		o.persistTurn(bg, core.Turn{
			SessionID: sessionID,
			Role:      core.RoleTool,
			Content:   output,
		})
		results = append(results, core.Message{
			Role:       core.RoleTool,
			Content:    output,
			ToolCallID: call.ID,
		})
	}
	return results
}

// setTitle names the session after its opening message. The title is
// computed by the fast model, streamed on the title substream and
// persisted, all best effort.
func (o *Orchestrator) setTitle(ctx, bg context.Context, req core.TurnRequest, sink stream.Emitter) {
	logger := log.FromCtx(ctx)

	title, err := generateTitle(ctx, o.fast, req.Message)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to generate session title")
		return
	}

	if err := sink.Emit(stream.ChannelTitle, title); err != nil {
		logger.Warn().Err(err).Msg("failed to emit session title")
	}
	if err := o.sessions.SetTitle(bg, req.SessionID, title); err != nil {
		logger.Warn().Err(err).Msg("failed to persist session title")
	}
}

func (o *Orchestrator) persistTurn(ctx context.Context, turn core.Turn) {
	if _, err := o.history.AddTurn(ctx, turn); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("role", turn.Role).Msg("failed to persist turn")
	}
}
