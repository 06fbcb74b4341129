// Package workflow runs one request through the router, the chosen agent and its tools.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sibikrish3000/cr-agent/internal/agent"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

// DefaultMaxToolIterations bounds tool rounds when the configuration leaves it unset.
const DefaultMaxToolIterations = 10

const cappedReplyFmt = "I stopped after %d rounds of tool calls without reaching a final answer. Please try rephrasing your request."

// ErrNoAgent is returned when the router picks an agent that is not registered.
var ErrNoAgent = errors.New("no agent registered for route")

// Classifier picks the agent for a request.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Agent, error)
}

// ToolExecutor runs one tool call and reports the outcome as text.
type ToolExecutor interface {
	Execute(ctx context.Context, call llm.ToolCall) string
}

// RouteObserver is told which agent handled each request.
type RouteObserver interface {
	ObserveRoute(agent string)
}

// Result is the outcome of one run.
type Result struct {
	Agent          domain.Agent
	Messages       []llm.Message
	ToolIterations int
	Capped         bool
}

// Final returns the last message of the run.
func (r *Result) Final() llm.Message {
	if len(r.Messages) == 0 {
		return llm.Message{}
	}
	return r.Messages[len(r.Messages)-1]
}

// Engine is the graph START -> router -> agent <-> tools -> END.
type Engine struct {
	router            Classifier
	tools             ToolExecutor
	agents            map[domain.Agent]agent.Agent
	maxToolIterations int
	observer          RouteObserver
}

// NewEngine creates an engine. maxToolIterations <= 0 selects DefaultMaxToolIterations.
func NewEngine(router Classifier, tools ToolExecutor, maxToolIterations int, agents ...agent.Agent) *Engine {
	if maxToolIterations <= 0 {
		maxToolIterations = DefaultMaxToolIterations
	}
	e := &Engine{
		router:            router,
		tools:             tools,
		agents:            make(map[domain.Agent]agent.Agent, len(agents)),
		maxToolIterations: maxToolIterations,
	}
	for _, a := range agents {
		e.agents[a.Kind()] = a
	}
	return e
}

// SetObserver installs the route observer.
func (e *Engine) SetObserver(o RouteObserver) {
	e.observer = o
}

// Run routes the conversation and drives the agent until it answers without tool calls or the
// tool iteration cap is reached. The input slice is not modified.
func (e *Engine) Run(ctx context.Context, messages []llm.Message, filePath string) (*Result, error) {
	start := time.Now()
	query := llm.LastUserMessage(messages)

	kind, err := e.router.Classify(ctx, query)
	if err != nil {
		return nil, err
	}
	a, ok := e.agents[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAgent, kind.Label())
	}

	log.Info().Str("agent", kind.Label()).Bool("has_file", filePath != "").Msg("Request routed")
	if e.observer != nil {
		e.observer.ObserveRoute(kind.Label())
	}

	result := &Result{Agent: kind, Messages: slices.Clone(messages)}
	allowed := a.Tools()

	for {
		msg, err := a.Respond(ctx, agent.Input{Messages: result.Messages, FilePath: filePath})
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", kind.Label(), err)
		}
		result.Messages = append(result.Messages, msg)

		if len(msg.ToolCalls) == 0 || len(allowed) == 0 {
			break
		}
		if result.ToolIterations >= e.maxToolIterations {
			result.Capped = true
			log.Warn().
				Str("agent", kind.Label()).
				Int("max_tool_iterations", e.maxToolIterations).
				Msg("Tool iteration cap reached, returning last answer")
			if strings.TrimSpace(msg.Content) == "" {
				result.Messages = append(result.Messages, llm.Assistant(lastAnswer(result.Messages, e.maxToolIterations)))
			}
			break
		}

		result.ToolIterations++
		result.Messages = append(result.Messages, e.runTools(ctx, kind, allowed, msg.ToolCalls)...)
	}

	log.Info().
		Str("agent", kind.Label()).
		Int("tool_iterations", result.ToolIterations).
		Dur("duration", time.Since(start)).
		Msg("Workflow finished")
	return result, nil
}

// runTools executes the calls concurrently and returns their results in call order.
// Calls to tools the agent is not bound to are answered with an error string.
func (e *Engine) runTools(ctx context.Context, kind domain.Agent, allowed []string, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		if !slices.Contains(allowed, call.Name) {
			log.Warn().Str("agent", kind.Label()).Str("tool", call.Name).Msg("Tool not bound to agent")
			results[i] = llm.ToolResult(call, fmt.Sprintf("Error: tool %s is not available to %s", call.Name, kind.Label()))
			continue
		}
		g.Go(func() error {
			results[i] = llm.ToolResult(call, e.tools.Execute(ctx, call))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// lastAnswer returns the latest assistant text of a capped run, or a fixed reply when the
// agent only ever asked for tools.
func lastAnswer(messages []llm.Message, maxToolIterations int) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == llm.RoleAssistant && strings.TrimSpace(m.Content) != "" {
			return m.Content
		}
	}
	return fmt.Sprintf(cappedReplyFmt, maxToolIterations)
}
