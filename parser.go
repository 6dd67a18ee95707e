package argv

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// A transition consumes some prefix of the remaining tokens and produces
// either candidate parses or a terminal error. The state carries
// per-invocation configuration and the repetition memo table.
type transition func(st *state, tokens Sequence[string]) Result[Parse[Output]]

// A Parser recognises some shape of command-line input and accumulates
// bindings. Parsers are immutable values: every combinator returns a new
// Parser, and a Parser may be applied any number of times, concurrently or
// not, against different inputs.
type Parser struct {
	run   transition
	usage string
	helps map[string]string

	// nonoptional is the parser stripped of its default fallback, recorded
	// by Optional and Defaults. Nonpositional consults it so that defaults
	// do not mask detection of genuinely missing required arguments.
	nonoptional *Parser
}

// state is created once per top-level parse invocation and threaded through
// every transition. The memo table is therefore scoped to a single
// invocation and cannot grow across calls.
type state struct {
	cfg  *parseConfig
	memo map[memoKey]Result[Parse[Output]]
}

type memoKey struct {
	id    uint64
	input string
}

var repetitionID atomic.Uint64

func newState(cfg *parseConfig) *state {
	return &state{cfg: cfg, memo: map[memoKey]Result[Parse[Output]]{}}
}

func snapshot(tokens Sequence[string]) string {
	return strings.Join(tokens.Items(), "\x00")
}

// Return builds a parser that consumes nothing and always succeeds with the
// given bindings. It is the monadic unit all sequencing desugars to.
func Return(out Output) Parser {
	return Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		return Success(Parse[Output]{Parsed: out, Unparsed: cs})
	}}
}

// Zero builds a parser that always fails with err, or with the generic
// *NoMatchError when err is nil.
func Zero(err error) Parser {
	return Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		return Failure[Parse[Output]](err)
	}}
}

// Empty always succeeds without consuming input or binding anything. It is
// the identity for Then and the fallback half of Optional.
func Empty() Parser { return Return(Output{}) }

// Usage returns the synthesised usage string for this parser.
func (p Parser) Usage() string { return p.usage }

// WithUsage overrides the synthesised usage string.
func (p Parser) WithUsage(usage string) Parser {
	p.usage = usage
	return p
}

// WithHelp attaches a help line for dest, shown under the usage block.
func (p Parser) WithHelp(dest, text string) Parser {
	helps := make(map[string]string, len(p.helps)+1)
	for k, v := range p.helps {
		helps[k] = v
	}
	helps[dest] = text
	p.helps = helps
	return p
}

// Bind is the monadic primitive: apply p, then apply f to each successful
// binding set to obtain the parser for the rest of the input. Most callers
// want Then, Or or Unordered instead.
func (p Parser) Bind(f func(Output) Parser) Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			return BindResult(p.run(st, cs), func(pr Parse[Output]) Result[Parse[Output]] {
				return f(pr.Parsed).run(st, pr.Unparsed)
			})
		},
		helps: p.helps,
	}
}

// Then applies p and hands its unparsed remainder to next, concatenating the
// two binding sets. It fails if either side fails.
func (p Parser) Then(next Parser) Parser {
	parser := p.Bind(func(out Output) Parser {
		return next.Bind(func(out2 Output) Parser {
			return Return(out.Concat(out2))
		})
	})
	parser.usage = seqUsage(p.usage, next.usage)
	parser.helps = mergeHelps(p.helps, next.helps)
	return parser
}

// Or tries both parsers against the same input and unions the outcomes.
// When both succeed every candidate is retained; disambiguation happens at
// ParseArgs, which prefers the candidate that consumed the most input.
func (p Parser) Or(other Parser) Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			return p.run(st, cs).Or(other.run(st, cs))
		},
		usage: binaryUsage(p.usage, " | ", other.usage, true),
		helps: mergeHelps(p.helps, other.helps),
	}
}

// Unordered accepts p and other in either order. It is sugar for
// (p.Then(other)).Or(other.Then(p)) and does not generalise beyond two
// parsers; use Nonpositional for larger groups.
func (p Parser) Unordered(other Parser) Parser {
	parser := p.Then(other).Or(other.Then(p))
	parser.usage = binaryUsage(p.usage, " ", other.usage, false)
	return parser
}

// Xor succeeds only when exactly one of the two parsers succeeds.
func (p Parser) Xor(other Parser) Parser {
	parser := p.Fails().Then(other).Or(other.Fails().Then(p))
	parser = parser.MapError(func(err error) error {
		var be *BinaryError
		if errors.As(err, &be) {
			var s1, s2 *SuccessError
			if errors.As(be.First, &s1) && errors.As(be.Second, &s2) {
				return &NoMatchError{Reason: "both alternatives matched"}
			}
		}
		return err
	})
	parser.usage = binaryUsage(p.usage, " | ", other.usage, true)
	parser.helps = mergeHelps(p.helps, other.helps)
	return parser
}

// Fails succeeds, binding nothing and consuming nothing, only when p fails.
func (p Parser) Fails() Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			if p.run(st, cs).Err() != nil {
				return Success(Parse[Output]{Unparsed: cs})
			}
			return Failure[Parse[Output]](&SuccessError{})
		},
		helps: p.helps,
	}
}

// Many applies p zero or more times, greedily, accumulating bindings. Every
// prefix of repetitions is retained as a candidate so that enclosing
// parsers can backtrack into shorter matches. Repetition is bounded by the
// configured maximum (WithMaxRepeat) and memoised per remaining-input
// suffix within one top-level invocation.
func (p Parser) Many() Parser {
	parser := p.repeat(false)
	parser.usage = "[" + p.usage + " ...]"
	parser.helps = p.helps
	return parser
}

// Many1 applies p one or more times.
func (p Parser) Many1() Parser {
	parser := p.repeat(true)
	parser.usage = p.usage + " [" + p.usage + " ...]"
	parser.helps = p.helps
	return parser
}

func (p Parser) repeat(atLeastOne bool) Parser {
	id := repetitionID.Add(1)
	var many, many1 func(st *state, cs Sequence[string], depth int) Result[Parse[Output]]
	many = func(st *state, cs Sequence[string], depth int) Result[Parse[Output]] {
		empty := Success(Parse[Output]{Unparsed: cs})
		if depth >= st.cfg.maxRepeat {
			return empty
		}
		return many1(st, cs, depth).Or(empty)
	}
	many1 = func(st *state, cs Sequence[string], depth int) Result[Parse[Output]] {
		key := memoKey{id: id, input: snapshot(cs)}
		if cached, ok := st.memo[key]; ok {
			return cached
		}
		r := BindResult(p.run(st, cs), func(first Parse[Output]) Result[Parse[Output]] {
			return BindResult(many(st, first.Unparsed, depth+1), func(rest Parse[Output]) Result[Parse[Output]] {
				return Success(Parse[Output]{
					Parsed:   first.Parsed.Concat(rest.Parsed),
					Unparsed: rest.Unparsed,
				})
			})
		})
		st.memo[key] = r
		return r
	}
	return Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		if atLeastOne {
			return many1(st, cs, 0)
		}
		return many(st, cs, 0)
	}}
}

// NTimes applies p exactly n times.
func (p Parser) NTimes(n int) Parser {
	if n <= 0 {
		return Empty()
	}
	return p.Then(p.NTimes(n - 1))
}

// Optional allows p to match nothing, preferring p's own result when input
// for it is present.
func (p Parser) Optional() Parser {
	parser := p.Or(Empty())
	core := p
	parser.nonoptional = &core
	return parser
}

// Defaults falls back to binding the given values when p itself does not
// match. Unlike Or with a bare Defaults parser, the receiver is remembered
// as the non-optional core for Nonpositional.
func (p Parser) Defaults(kvs ...KeyValue) Parser {
	parser := p.Or(Defaults(kvs...))
	core := p
	parser.nonoptional = &core
	return parser
}

// Ignore discards p's bindings while still requiring its input shape.
func (p Parser) Ignore() Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			return BindResult(p.run(st, cs), func(pr Parse[Output]) Result[Parse[Output]] {
				return Success(Parse[Output]{Unparsed: pr.Unparsed})
			})
		},
	}
}

// Apply transforms p's bindings through f. An error returned by f that is
// not already a parse Error, and any panic raised by f, is wrapped in a
// *ConvertError; arbitrary failures never escape the parser boundary.
func (p Parser) Apply(f func(Output) (Output, error)) Parser {
	parser := p.Bind(func(out Output) Parser {
		converted, err := convert(out, f)
		if err != nil {
			return Zero(err)
		}
		return Return(converted)
	})
	parser.usage = p.usage
	parser.helps = p.helps
	return parser
}

func convert(out Output, f func(Output) (Output, error)) (converted Output, err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = &ConvertError{Arg: renderOutput(out), Err: fmt.Errorf("%v", msg)}
		}
	}()
	converted, err = f(out)
	if err != nil {
		var perr Error
		if !errors.As(err, &perr) {
			err = &ConvertError{Arg: renderOutput(out), Err: err}
		}
	}
	return converted, err
}

func renderOutput(out Output) string {
	parts := make([]string, 0, out.Len())
	for _, kv := range out.Items() {
		parts = append(parts, fmt.Sprintf("%s=%v", kv.Key, kv.Value))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Sat validates p's bindings against a predicate, failing with onFail's
// error when the predicate rejects them.
func (p Parser) Sat(predicate func(Output) bool, onFail func(Output) error) Parser {
	return p.Apply(func(out Output) (Output, error) {
		if predicate(out) {
			return out, nil
		}
		return Output{}, onFail(out)
	})
}

// Type converts the value of the most recent binding with f. Conversion
// failures become parse errors rather than crashes.
func (p Parser) Type(f ConvertFunc) Parser {
	return p.Apply(func(out Output) (Output, error) {
		n := out.Len()
		if n == 0 {
			return Output{}, fmt.Errorf("no binding to convert")
		}
		kv := out.At(n - 1)
		s, ok := kv.Value.(string)
		if !ok {
			return Output{}, fmt.Errorf("cannot convert %T", kv.Value)
		}
		v, err := f(s)
		if err != nil {
			return Output{}, &ConvertError{Arg: s, Err: err}
		}
		return out.Slice(0, n-1).Concat(Bindings(KeyValue{Key: kv.Key, Value: v})), nil
	})
}

// FindAll re-binds the most recent binding to every match of pattern in its
// string value, using the first capture group when one is present. With no
// matches the binding is dropped.
func (p Parser) FindAll(pattern string) Parser {
	re := mustCompile(pattern)
	return p.Apply(func(out Output) (Output, error) {
		n := out.Len()
		if n == 0 {
			return Output{}, fmt.Errorf("no binding to search")
		}
		kv := out.At(n - 1)
		s, ok := kv.Value.(string)
		if !ok {
			return Output{}, fmt.Errorf("cannot search %T", kv.Value)
		}
		var found []KeyValue
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			v := m[0]
			if len(m) > 1 {
				v = m[1]
			}
			found = append(found, KeyValue{Key: kv.Key, Value: v})
		}
		return out.Slice(0, n-1).Concat(NewSequence(found...)), nil
	})
}

// Nesting splits a dotted key in the most recent binding (such as
// "config.name") so that ToMap expands it into nested maps.
func (p Parser) Nesting() Parser {
	parser := p.Apply(func(out Output) (Output, error) {
		if out.Len() == 0 {
			return Output{}, fmt.Errorf("no binding to nest")
		}
		return splitKey(out), nil
	})
	parser.usage = p.usage
	parser.helps = p.helps
	return parser
}

// MapError rewrites the error p fails with, leaving successes untouched.
func (p Parser) MapError(f func(error) error) Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			r := p.run(st, cs)
			if err := r.Err(); err != nil {
				return Failure[Parse[Output]](f(err))
			}
			return r
		},
		helps: p.helps,
	}
}

// WrapError replaces any failure of p with err.
func (p Parser) WrapError(err error) Parser {
	return p.MapError(func(error) error { return err })
}

// WrapHelp intercepts a leading --help or -h token, without consuming
// input, and fails with a *HelpError carrying p's usage. ParseArgs applies
// this automatically unless CheckHelp(false) is given.
func (p Parser) WrapHelp() Parser {
	usage := p.usage
	if usage == "" {
		usage = "Usage not provided."
	}
	help := helpIntercept(usage)
	parser := help.Bind(func(Output) Parser { return p })
	parser.usage = p.usage
	parser.helps = p.helps
	return parser
}

func helpIntercept(usage string) Parser {
	return Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		if head, _, ok := cs.Head(); ok && (head == "--help" || head == "-h") {
			return Failure[Parse[Output]](&HelpError{Usage: usage})
		}
		return Success(Parse[Output]{Unparsed: cs})
	}}
}

// Parse applies the parser to the given tokens with default configuration,
// returning every candidate parse.
func (p Parser) Parse(tokens ...string) Result[Parse[Output]] {
	st := newState(defaultParseConfig())
	return p.run(st, NewSequence(tokens...))
}

// ParseArgs is the main entry point: it parses args and returns the bound
// values as a map, with same-key collisions coalesced into lists and dotted
// keys expanded into nested maps.
//
// Unless AllowUnparsed(true) is given, trailing input is rejected. Unless
// CheckHelp(false) is given, a leading --help or -h short-circuits with a
// *HelpError after rendering the usage block. On any failure the usage and
// error message are rendered to the configured writer (standard output by
// default) and the error is returned.
func (p Parser) ParseArgs(args []string, options ...ParseOption) (map[string]any, error) {
	cfg := newParseConfig(options)
	parser := p
	if !cfg.allowUnparsed {
		parser = parser.Then(Done())
	}
	if cfg.checkHelp {
		parser = parser.WrapHelp()
	}
	st := newState(cfg)
	r := parser.run(st, NewSequence(args...))
	if err := r.Err(); err != nil {
		parser.renderError(cfg, err)
		return nil, err
	}
	best := canonical(r.Values())
	return ToMap(best.Parsed), nil
}

// ParseArgsOrExit parses os.Args[1:] (or the WithArgs override) and
// terminates the process on failure: exit status 0 after an explicit help
// request, 1 otherwise. This is the production surface; tests and library
// callers use ParseArgs.
func (p Parser) ParseArgsOrExit(options ...ParseOption) map[string]any {
	cfg := newParseConfig(options)
	args := cfg.args
	if args == nil {
		args = os.Args[1:]
	}
	m, err := p.ParseArgs(args, options...)
	if err != nil {
		code := 1
		var help *HelpError
		if errors.As(err, &help) {
			code = 0
		}
		osExit(code)
	}
	return m
}

// Stubbed in tests.
var osExit = os.Exit

// canonical selects the candidate that consumed the most input, i.e. the
// one with the shortest unparsed suffix. Ties go to the earlier candidate,
// preserving left-to-right alternative preference.
func canonical(parses []Parse[Output]) Parse[Output] {
	best := parses[0]
	for _, pr := range parses[1:] {
		if pr.Unparsed.Len() < best.Unparsed.Len() {
			best = pr
		}
	}
	return best
}
