// Package agent orchestrates one conversation turn: input validation,
// mood update, small-talk rules, scan, synthesis, rendering and the
// asynchronous memory write.
package agent

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/firstclay/adam/internal/mood"
	"github.com/firstclay/adam/internal/persona"
	"github.com/firstclay/adam/internal/scanner"
	"github.com/firstclay/adam/internal/synthesis"
)

const (
	// maxQuestionLen bounds accepted input, in runes.
	maxQuestionLen = 4000

	// recordTimeout bounds the background memory write.
	recordTimeout = 10 * time.Second

	// topicLimit is how many recent themes feed the scan as context.
	topicLimit = 5
)

// Memory is the conversation history the agent reads and writes.
// *memory.Store satisfies it.
type Memory interface {
	RecordTurn(ctx context.Context, userID, question, answer string, themes []string) error
	RecentTopics(ctx context.Context, userID string, limit int) ([]string, error)
	PreferredTheme(ctx context.Context, userID string) (string, error)
}

// Response is one completed turn.
type Response struct {
	// Text is the rendered, in-voice reply. Never empty.
	Text string

	// Answer is the underlying synthesized answer. Zero-valued for
	// rule-table turns.
	Answer synthesis.Answer

	// Band is the mood band the reply was rendered in.
	Band mood.Band

	// TurnID identifies the turn and seeds its template selection.
	TurnID uuid.UUID
}

// Agent runs the question-answering pipeline.
type Agent struct {
	scanner  *scanner.Scanner
	synth    *synthesis.Synthesizer
	moods    *mood.Model
	renderer *persona.Renderer
	rules    *persona.RuleTable
	memory   Memory
	logger   *slog.Logger

	wg sync.WaitGroup
}

// New creates an Agent.
func New(
	sc *scanner.Scanner,
	synth *synthesis.Synthesizer,
	moods *mood.Model,
	renderer *persona.Renderer,
	rules *persona.RuleTable,
	mem Memory,
	logger *slog.Logger,
) (*Agent, error) {
	if sc == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if moods == nil {
		return nil, fmt.Errorf("mood model is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if rules == nil {
		rules = persona.DefaultRules()
	}
	if mem == nil {
		return nil, fmt.Errorf("memory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		scanner:  sc,
		synth:    synth,
		moods:    moods,
		renderer: renderer,
		rules:    rules,
		memory:   mem,
		logger:   logger,
	}, nil
}

// Respond handles one turn. Malformed input (empty or oversized
// questions) is rejected here, before the pipeline; past this boundary
// the pipeline is total and always yields a non-empty reply.
func (a *Agent) Respond(ctx context.Context, userID, question string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, fmt.Errorf("question is empty")
	}
	if utf8.RuneCountInString(question) > maxQuestionLen {
		return Response{}, fmt.Errorf("question exceeds %d characters", maxQuestionLen)
	}
	if userID == "" {
		return Response{}, fmt.Errorf("user id is required")
	}

	turnID := uuid.New()
	seed := binary.BigEndian.Uint64(turnID[:8])

	moodValue := a.moods.Update(userID, question)
	band := mood.BandOf(moodValue)

	if text, ok := a.rules.Match(question, seed); ok {
		a.recordAsync(ctx, userID, question, text, nil)
		return Response{Text: text, Band: band, TurnID: turnID}, nil
	}

	topics, err := a.memory.RecentTopics(ctx, userID, topicLimit)
	if err != nil {
		// History is context, not a dependency. Answer without it.
		a.logger.Warn("recent topics unavailable", "user_id", userID, "error", err)
		topics = nil
	}
	if preferred, err := a.memory.PreferredTheme(ctx, userID); err != nil {
		a.logger.Warn("preferred theme unavailable", "user_id", userID, "error", err)
	} else if preferred != "" && !slices.Contains(topics, preferred) {
		topics = append(topics, preferred)
	}

	res := a.scanner.Scan(ctx, question, topics)
	ans := a.synth.Synthesize(res)
	text := a.renderer.Render(ans, question, band, seed)

	a.recordAsync(ctx, userID, question, text, ans.DetectedThemes)

	a.logger.Info("turn completed",
		"user_id", userID,
		"turn_id", turnID,
		"theme", ans.PrimaryTheme,
		"confidence", ans.Confidence,
		"band", band.String())

	return Response{Text: text, Answer: ans, Band: band, TurnID: turnID}, nil
}

// recordAsync writes the turn to memory without blocking the reply. The
// write survives request cancellation but carries its own timeout.
func (a *Agent) recordAsync(ctx context.Context, userID, question, answer string, themes []string) {
	bgCtx := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		recCtx, cancel := context.WithTimeout(bgCtx, recordTimeout)
		defer cancel()

		if err := a.memory.RecordTurn(recCtx, userID, question, answer, themes); err != nil {
			a.logger.Warn("failed to record turn", "user_id", userID, "error", err)
		}
	}()
}

// Close waits for in-flight memory writes to drain.
func (a *Agent) Close() {
	a.wg.Wait()
}
