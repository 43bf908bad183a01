package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neexbeast/airfare/internal/metrics"
	"github.com/neexbeast/airfare/internal/query"
)

// ErrToolNotFound is returned by Execute for an unregistered tool name.
var ErrToolNotFound = errors.New("tool not found")

// Param describes one named tool argument. Required is advertised to callers;
// executors check their own arguments so failures follow the order of the
// underlying operation.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Executor runs a tool against its string arguments.
type Executor func(ctx context.Context, args Args) query.Envelope

// Tool is a named, self-describing operation.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	exec        Executor
}

// Call is the record of one tool invocation handed to observers.
type Call struct {
	Tool      string
	StartCity string
	EndCity   string
	Success   bool
	Error     string
	Duration  time.Duration
}

// Observer is notified after every tool invocation. Observer errors are
// logged and never change the result.
type Observer interface {
	ObserveCall(ctx context.Context, call Call) error
}

// Registry manages the registration and execution of tools.
type Registry struct {
	tools     []Tool
	byName    map[string]int
	observers []Observer
	log       *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger, observers ...Observer) *Registry {
	return &Registry{
		byName:    make(map[string]int),
		observers: observers,
		log:       log,
	}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(name, description string, params []Param, exec Executor) error {
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("tool %s already registered", name)
	}
	if params == nil {
		params = []Param{}
	}
	r.byName[name] = len(r.tools)
	r.tools = append(r.tools, Tool{Name: name, Description: description, Params: params, exec: exec})
	return nil
}

// Tools returns all registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Execute runs a registered tool by name.
func (r *Registry) Execute(ctx context.Context, name string, args Args) (query.Envelope, error) {
	idx, ok := r.byName[name]
	if !ok {
		return query.Envelope{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	tool := r.tools[idx]

	start := time.Now()
	env := tool.run(ctx, args)
	call := Call{
		Tool:      name,
		StartCity: args.Get("start_city"),
		EndCity:   args.Get("end_city"),
		Success:   env.Success,
		Duration:  time.Since(start),
	}
	if env.Error != nil {
		call.Error = *env.Error
	}

	outcome := metrics.OutcomeSuccess
	if !env.Success {
		outcome = metrics.OutcomeFailure
	}
	metrics.ToolCalls.WithLabelValues(name, outcome).Inc()

	for _, o := range r.observers {
		if err := o.ObserveCall(ctx, call); err != nil {
			r.log.Warn("tool observer failed", "tool", name, "err", err)
		}
	}

	return env, nil
}

func (t Tool) run(ctx context.Context, args Args) query.Envelope {
	if args == nil {
		args = Args{}
	}
	return t.exec(ctx, args)
}

// Args holds the string arguments of a tool call.
type Args map[string]string

// Get returns the named argument or "".
func (a Args) Get(name string) string {
	return a[name]
}
