package manifest

import (
	"fmt"
	"maps"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dshills/keystate/internal/message"
	"github.com/dshills/keystate/internal/namespace"
	"github.com/dshills/keystate/internal/script"
	"github.com/dshills/keystate/internal/tree"
)

// valueFunc computes the next value of the state, or of one field of it.
type valueFunc func(current any, msg message.Message) (any, error)

// exprEnv is the environment expressions evaluate against.
type exprEnv struct {
	State   any    `expr:"state"`
	Payload any    `expr:"payload"`
	Type    string `expr:"type"`
	ID      string `expr:"id"`
	Source  string `expr:"source"`
}

func newExprEnv(state any, msg message.Message) exprEnv {
	return exprEnv{
		State:   state,
		Payload: msg.Payload,
		Type:    msg.Type,
		ID:      msg.ID,
		Source:  msg.Source,
	}
}

// compileExpr compiles an expression against exprEnv.
func compileExpr(source string, opts ...expr.Option) (*vm.Program, error) {
	opts = append([]expr.Option{expr.Env(exprEnv{}), expr.AllowUndefinedVariables()}, opts...)
	program, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	return program, nil
}

// reducerFor builds the reducer an action spec describes. Lua reducers are
// appended to closers.
func (l *Loader) reducerFor(m *Manifest, spec ActionSpec, closers *[]*script.Reducer) (namespace.Reducer, error) {
	var fn valueFunc

	switch spec.EffectiveKind() {
	case KindMerge:
		fn = valueFunc(namespace.DefaultReducer)
	case KindSet:
		fn = setValue(spec.Value)
	case KindAppend:
		fn = appendValue(spec.Value)
	case KindRemove:
		fn = removeValue(spec.Value)
	case KindIncrement:
		fn = incrementValue(spec.Value)
	case KindReset:
		fn = resetValue(m, spec)
	case KindExpr:
		if spec.Expr == "" {
			return nil, fmt.Errorf("%w: %s: expr is required", ErrInvalidAction, spec.Name)
		}
		program, err := compileExpr(spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", spec.Name, err)
		}
		fn = func(current any, msg message.Message) (any, error) {
			return expr.Run(program, newExprEnv(current, msg))
		}
	case KindLua:
		r, err := l.luaReducer(m, spec)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", spec.Name, err)
		}
		*closers = append(*closers, r)
		fn = r.Reduce
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	reducer := focus(spec.Field, fn)
	if spec.When == "" {
		return reducer, nil
	}

	guard, err := compileExpr(spec.When, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", spec.Name, err)
	}
	return when(guard, reducer), nil
}

func (l *Loader) luaReducer(m *Manifest, spec ActionSpec) (*script.Reducer, error) {
	source := spec.Script
	if spec.File != "" {
		if source != "" {
			return nil, fmt.Errorf("%w: script and file are exclusive", ErrInvalidAction)
		}
		data, err := l.ReadFile(m, spec.File)
		if err != nil {
			return nil, fmt.Errorf("reading script: %w", err)
		}
		source = string(data)
	}
	if source == "" {
		return nil, fmt.Errorf("%w: script or file is required", ErrInvalidAction)
	}
	return script.NewReducer(source, spec.Function, l.scriptOpts...)
}

// focus applies fn to one field of the state. An empty field means the
// whole state.
func focus(field string, fn valueFunc) namespace.Reducer {
	if field == "" {
		return namespace.Reducer(fn)
	}
	return func(state any, msg message.Message) (any, error) {
		current, exists := tree.Get(state, field)
		next, err := fn(current, msg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		if !exists && next == nil {
			return state, nil
		}
		return tree.With(state, field, next)
	}
}

// when skips reducer unless guard evaluates to true.
func when(guard *vm.Program, reducer namespace.Reducer) namespace.Reducer {
	return func(state any, msg message.Message) (any, error) {
		ok, err := expr.Run(guard, newExprEnv(state, msg))
		if err != nil {
			return nil, fmt.Errorf("when: %w", err)
		}
		if pass, _ := ok.(bool); !pass {
			return state, nil
		}
		return reducer(state, msg)
	}
}

// operand is the message payload, or fallback when the payload is nil.
func operand(msg message.Message, fallback any) any {
	if msg.Payload != nil {
		return msg.Payload
	}
	return fallback
}

func setValue(fallback any) valueFunc {
	return func(current any, msg message.Message) (any, error) {
		next := operand(msg, fallback)
		if tree.Same(current, next) {
			return current, nil
		}
		return next, nil
	}
}

func appendValue(fallback any) valueFunc {
	return func(current any, msg message.Message) (any, error) {
		list, err := asList(current)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(list), len(list)+1)
		copy(out, list)
		return append(out, operand(msg, fallback)), nil
	}
}

func removeValue(fallback any) valueFunc {
	return func(current any, msg message.Message) (any, error) {
		target := operand(msg, fallback)

		if m, ok := current.(tree.Map); ok {
			key, ok := target.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map removal needs a string key, got %T", ErrInvalidAction, target)
			}
			if _, exists := m[key]; !exists {
				return current, nil
			}
			out := maps.Clone(m)
			delete(out, key)
			return out, nil
		}

		list, err := asList(current)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(list))
		for _, item := range list {
			if !tree.Equal(item, target) {
				out = append(out, item)
			}
		}
		if len(out) == len(list) {
			return current, nil
		}
		return out, nil
	}
}

func incrementValue(fallback any) valueFunc {
	return func(current any, msg message.Message) (any, error) {
		step := operand(msg, fallback)
		if step == nil {
			step = int64(1)
		}
		if current == nil {
			current = int64(0)
		}
		return add(current, step)
	}
}

// resetValue restores the declared default. Without a field and without an
// explicit value only the declared keys are restored, so child subtrees
// keep their state.
func resetValue(m *Manifest, spec ActionSpec) valueFunc {
	declared := tree.Clone(m.Default)

	return func(current any, _ message.Message) (any, error) {
		if spec.Value != nil {
			return spec.Value, nil
		}
		if spec.Field != "" {
			v, _ := tree.Get(declared, spec.Field)
			return v, nil
		}
		fields, ok := declared.(tree.Map)
		if !ok {
			return declared, nil
		}
		return tree.Assign(current, fields)
	}
}

func asList(v any) ([]any, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return list, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotList, v)
	}
}

// add sums two numbers. Integer operands give int64, anything with a
// float gives float64, as does an integer sum outside the int64 range.
func add(a, b any) (any, error) {
	ai, af, aInt, err := number(a)
	if err != nil {
		return nil, err
	}
	bi, bf, bInt, err := number(b)
	if err != nil {
		return nil, err
	}
	if aInt && bInt {
		sum := ai + bi
		// An overflowing sum wraps to the wrong side of ai
		if (bi >= 0) == (sum >= ai) {
			return sum, nil
		}
	}
	return af + bf, nil
}

// number returns v as int64 and float64 and whether it held an integer.
func number(v any) (int64, float64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), float64(n), true, nil
	case int32:
		return int64(n), float64(n), true, nil
	case int64:
		return n, float64(n), true, nil
	case uint32:
		return int64(n), float64(n), true, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, float64(n), false, nil
		}
		return int64(n), float64(n), true, nil
	case float32:
		return int64(n), float64(n), false, nil
	case float64:
		return int64(n), n, false, nil
	default:
		return 0, 0, false, fmt.Errorf("%w: got %T", ErrNotNumber, v)
	}
}
