package argv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

// Item consumes exactly one token, whatever it is, and binds it under name.
// It fails with a *MissingError on empty input.
func Item(name string) Parser { return itemNamed(name, "") }

func itemNamed(name, described string) Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			st.tracef(cs, "item %s", name)
			head, tail, ok := cs.Head()
			if !ok {
				return Failure[Parse[Output]](&MissingError{Missing: name, Described: described})
			}
			return Success(Parse[Output]{
				Parsed:   Bindings(KeyValue{Key: name, Value: head}),
				Unparsed: tail,
			})
		},
		usage: name,
	}
}

// Peek binds the next token under name without consuming it, leaving the
// token visible to subsequent parsers. Used for lookahead dispatch such as
// help detection.
func Peek(name string) Parser {
	return Parser{
		run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
			st.tracef(cs, "peek %s", name)
			head, _, ok := cs.Head()
			if !ok {
				return Failure[Parse[Output]](&MissingError{Missing: name})
			}
			return Success(Parse[Output]{
				Parsed:   Bindings(KeyValue{Key: name, Value: head}),
				Unparsed: cs,
			})
		},
		usage: name,
	}
}

func lastValue(out Output) (string, bool) {
	if out.Len() == 0 {
		return "", false
	}
	s, ok := out.At(out.Len() - 1).Value.(string)
	return s, ok
}

func satToken(base Parser, predicate func(string) bool, onFail func(string) error) Parser {
	return base.Sat(
		func(out Output) bool {
			s, ok := lastValue(out)
			return ok && predicate(s)
		},
		func(out Output) error {
			s, _ := lastValue(out)
			return onFail(s)
		},
	)
}

// Sat consumes one token and validates it with predicate, binding it under
// name on success and failing with onFail's error otherwise.
func Sat(name string, predicate func(string) bool, onFail func(string) error) Parser {
	return satToken(Item(name), predicate, onFail)
}

// SatPeek is Sat without consuming the token.
func SatPeek(name string, predicate func(string) bool, onFail func(string) error) Parser {
	return satToken(Peek(name), predicate, onFail)
}

// Equals consumes one token and succeeds only when it is exactly s.
func Equals(s string) Parser {
	return Sat(s,
		func(v string) bool { return v == s },
		func(v string) error { return &UnequalError{Want: s, Got: v} })
}

// Matches consumes one token and succeeds when pattern matches at the start
// of it.
func Matches(pattern string) Parser {
	re := mustCompile("^(?:" + pattern + ")")
	return Sat(pattern,
		re.MatchString,
		func(v string) error { return &UnequalError{Want: pattern, Got: v} })
}

// Apply consumes one token and binds whatever f derives from it. Errors
// from f become parse failures.
func Apply(name string, f func(string) (Output, error)) Parser {
	return Item(name).Apply(func(out Output) (Output, error) {
		s, ok := lastValue(out)
		if !ok {
			return Output{}, fmt.Errorf("no token to convert")
		}
		return f(s)
	})
}

// Done succeeds only at end of input, failing with an *UnexpectedError
// naming the first leftover token otherwise. ParseArgs appends it
// automatically unless AllowUnparsed(true) is given.
func Done() Parser {
	return Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		st.tracef(cs, "done")
		if head, _, ok := cs.Head(); ok {
			return Failure[Parse[Output]](&UnexpectedError{Token: head})
		}
		return Success(Parse[Output]{Unparsed: cs})
	}}
}

// Defaults always succeeds, consuming nothing and binding the given values.
// Useful as the fallback arm of an alternation.
func Defaults(kvs ...KeyValue) Parser { return Return(NewSequence(kvs...)) }

// Argument parses a single positional token and binds it under dest.
// Dotted dests expand into nested maps unless NoNesting is given; OfType
// converts the raw token.
func Argument(dest string, options ...ArgOption) Parser {
	cfg := newArgConfig(options)
	parser := Item(dest)
	if cfg.convert != nil {
		parser = parser.Type(cfg.convert)
	}
	if cfg.nesting {
		parser = parser.Nesting()
	}
	parser.usage = strings.ToUpper(dest)
	if cfg.help != "" {
		parser = parser.WithHelp(dest, cfg.help)
	}
	return parser
}

// Flag binds a boolean under dest when its surface string is present. The
// long form is --dest (-d for a single letter), with underscores rendered
// as dashes; a short single-letter form is also accepted unless NoShort is
// given. With Default the flag becomes optional and binds the negation of
// the default when present.
func Flag(dest string, options ...ArgOption) Parser {
	cfg := newArgConfig(options)
	dest = strings.ReplaceAll(dest, "-", "_")
	surface := cfg.surface
	if surface == "" {
		if len(dest) > 1 {
			surface = "--" + dest
		} else {
			surface = "-" + dest
		}
		surface = strings.ReplaceAll(surface, "_", "-")
	}

	parser := Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		value := true
		if b, ok := cfg.def.(bool); cfg.hasDefault && ok {
			value = !b
		}
		bound := Defaults(KeyValue{Key: dest, Value: value})
		if cfg.nesting {
			bound = bound.Nesting()
		}
		return Equals(surface).Bind(func(Output) Parser { return bound }).run(st, cs)
	}}

	if cfg.surface == "" && cfg.short && len(dest) > 1 {
		shortOptions := []ArgOption{NoShort(), WithString("-" + dest[:1])}
		if cfg.hasDefault {
			shortOptions = append(shortOptions, Default(cfg.def))
		}
		if !cfg.nesting {
			shortOptions = append(shortOptions, NoNesting())
		}
		parser = parser.Or(Flag(dest, shortOptions...))
	}

	help := cfg.help
	if cfg.hasDefault {
		if help != "" {
			help += " "
		}
		help += fmt.Sprintf("(default: %v)", cfg.def)
	}
	parser.usage = surface
	if help != "" {
		parser = parser.WithHelp(dest, help)
	}
	if cfg.hasDefault {
		parser = parser.Defaults(KeyValue{Key: dest, Value: cfg.def})
	}
	return parser
}

// Option parses a leading flag token followed by a value token and binds
// the value under dest. The single-token form --dest=value is also
// accepted. OfType converts the value, Choices restricts it, NArgs makes
// the option consume several values, and Default makes it optional.
func Option(dest string, options ...ArgOption) Parser {
	cfg := newArgConfig(options)
	if cfg.nargs > 1 && cfg.choices != nil {
		panic("argv: Choices is not supported with NArgs > 1")
	}
	dest = strings.ReplaceAll(dest, "-", "_")
	flagStr := cfg.surface
	if flagStr == "" {
		if len(dest) > 1 {
			flagStr = "--" + dest
		} else {
			flagStr = "-" + dest
		}
		flagStr = strings.ReplaceAll(flagStr, "_", "-")
	}

	convert := func(s string) (any, error) {
		if cfg.choices != nil && !slices.Contains(cfg.choices, s) {
			return nil, fmt.Errorf("invalid choice: '%s'. Choose from %v", s, cfg.choices)
		}
		if cfg.convert != nil {
			return cfg.convert(s)
		}
		return s, nil
	}

	parser := Parser{run: func(st *state, cs Sequence[string]) Result[Parse[Output]] {
		valueOptions := []ArgOption{OfType(convert)}
		if !cfg.nesting {
			valueOptions = append(valueOptions, NoNesting())
		}
		p := Equals(flagStr).Bind(func(Output) Parser {
			return Argument(dest, valueOptions...).NTimes(cfg.nargs)
		})
		if cfg.nargs == 1 {
			inline := Item(dest).
				FindAll(regexp.QuoteMeta(flagStr) + "=(.*)").
				Type(convert)
			if cfg.nesting {
				inline = inline.Nesting()
			}
			p = p.Or(inline)
		}
		return p.run(st, cs)
	}}

	if cfg.surface == "" && cfg.short && len(dest) > 1 {
		shortOptions := []ArgOption{NoShort(), WithString("-" + dest[:1])}
		if cfg.convert != nil {
			shortOptions = append(shortOptions, OfType(cfg.convert))
		}
		if cfg.choices != nil {
			shortOptions = append(shortOptions, Choices(cfg.choices...))
		}
		if cfg.nargs != 1 {
			shortOptions = append(shortOptions, NArgs(cfg.nargs))
		}
		if !cfg.nesting {
			shortOptions = append(shortOptions, NoNesting())
		}
		parser = parser.Or(Option(dest, shortOptions...))
	}

	help := cfg.help
	if cfg.hasDefault {
		if help != "" {
			help += " "
		}
		help += fmt.Sprintf("(default: %v)", cfg.def)
	}
	valueSymbol := strings.ToUpper(dest)
	if cfg.choices != nil {
		valueSymbol = "{" + strings.Join(cfg.choices, ",") + "}"
	}
	parser.usage = flagStr + " " + valueSymbol
	if help != "" {
		parser = parser.WithHelp(dest, help)
	}
	if cfg.hasDefault {
		parser = parser.Defaults(KeyValue{Key: dest, Value: cfg.def})
	}
	return parser
}

// Int converts a token with strconv.Atoi.
func Int(s string) (any, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Float64 converts a token with strconv.ParseFloat.
func Float64(s string) (any, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Bool converts a token with strconv.ParseBool.
func Bool(s string) (any, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Duration converts a token with time.ParseDuration.
func Duration(s string) (any, error) {
	v, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
