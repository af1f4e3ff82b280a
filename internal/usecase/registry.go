package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonny/tradebot/internal/pipeline"
)

// Runnable is one pipeline bound to a fresh context
type Runnable struct {
	Name      string
	StepNames []string
	Subscribe func(pipeline.Observer)
	Run       func(ctx context.Context) (*pipeline.Result, error)
}

// Bind pairs an engine with the context of one run
func Bind[C any](engine *pipeline.Engine[C], pc C) Runnable {
	return Runnable{
		Name:      engine.Name(),
		StepNames: engine.StepNames(),
		Subscribe: engine.Subscribe,
		Run: func(ctx context.Context) (*pipeline.Result, error) {
			return engine.Run(ctx, pc)
		},
	}
}

// Factory builds the steps and a fresh context for one run
type Factory func(ctx context.Context) (Runnable, error)

// Registry maps pipeline names to factories. Built once at startup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering a name twice panics: it is a wiring bug.
func (r *Registry) Register(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("pipeline %q registered twice", name))
	}
	r.factories[name] = f
}

// Get returns the factory of name
func (r *Registry) Get(name string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return f, nil
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
