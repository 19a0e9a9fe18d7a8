package filter

import (
	"fmt"

	"github.com/google/cel-go/cel"
	jsoniter "github.com/json-iterator/go"
)

type Evaluator struct {
	enabled bool
	prg     cel.Program
}

// NewCEL builds an evaluator for an expression over a decoded event payload.
// Variables:
// - event: map<string, dyn>
func NewCEL(expression string, enabled bool) (*Evaluator, error) {
	if !enabled || expression == "" {
		return &Evaluator{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter: %w", iss.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &Evaluator{enabled: true, prg: prg}, nil
}

func (e *Evaluator) Enabled() bool { return e != nil && e.enabled }

// AllowPayload decodes a JSON object and reports whether it passes.
func (e *Evaluator) AllowPayload(payload []byte) bool {
	if !e.Enabled() {
		return true
	}
	var ev map[string]any
	if err := jsoniter.Unmarshal(payload, &ev); err != nil {
		return false
	}
	return e.Allow(ev)
}

// Allow returns true if the event should be published.
func (e *Evaluator) Allow(ev map[string]any) bool {
	b, err := e.Evaluate(ev)
	if err != nil {
		return false
	}
	return b
}

// Evaluate returns the boolean result and any evaluation error.
func (e *Evaluator) Evaluate(ev map[string]any) (bool, error) {
	if !e.Enabled() || e.prg == nil {
		return true, nil
	}
	if ev == nil {
		ev = map[string]any{}
	}
	out, _, err := e.prg.Eval(map[string]any{"event": ev})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, nil
	}
	return b, nil
}
