package argv

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, p Parser, args ...string) map[string]any {
	t.Helper()
	m, err := p.ParseArgs(args, WithOutput(io.Discard))
	require.NoError(t, err)
	return m
}

func mustFail(t *testing.T, p Parser, args ...string) error {
	t.Helper()
	_, err := p.ParseArgs(args, WithOutput(io.Discard))
	require.Error(t, err)
	return err
}

func TestReturnBindsWithoutConsuming(t *testing.T) {
	p := Return(Bindings(KeyValue{Key: "mode", Value: "idle"}))
	assert.Equal(t, map[string]any{"mode": "idle"}, mustParse(t, p))
}

func TestZeroAlwaysFails(t *testing.T) {
	want := &UnexpectedError{Token: "x"}
	err := mustFail(t, Zero(want))
	assert.Equal(t, want, err)
}

func TestEmptyParsesNothing(t *testing.T) {
	assert.Equal(t, map[string]any{}, mustParse(t, Empty()))
	mustFail(t, Empty(), "leftover")
}

func TestThenSequences(t *testing.T) {
	p := Equals("run").Then(Argument("target"))
	m := mustParse(t, p, "run", "all")
	assert.Equal(t, map[string]any{"run": "run", "target": "all"}, m)

	mustFail(t, p, "run")
	mustFail(t, p, "walk", "all")
}

func TestOrPrefersAnySuccess(t *testing.T) {
	p := Equals("start").Or(Equals("stop"))
	assert.Equal(t, map[string]any{"stop": "stop"}, mustParse(t, p, "stop"))
}

func TestOrBothFailBlamesFirstAlternative(t *testing.T) {
	err := mustFail(t, Equals("start").Or(Equals("stop")), "restart")
	var be *BinaryError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Expected 'start'. Got 'restart'", be.Message())
}

func TestLongestMatchWins(t *testing.T) {
	p := Argument("x").Or(Argument("x").Then(Argument("y")))
	m := mustParse(t, p, "1", "2")
	assert.Equal(t, map[string]any{"x": "1", "y": "2"}, m)
}

func TestLongestMatchSelectedAmongSurvivors(t *testing.T) {
	// With trailing input permitted, both alternatives survive to the final
	// selection, which must prefer the candidate that consumed more input.
	p := Argument("x").Or(Argument("x").Then(Argument("y")))
	m, err := p.ParseArgs([]string{"1", "2"}, WithOutput(io.Discard), AllowUnparsed(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "1", "y": "2"}, m)

	// Order of alternatives must not matter when one consumes strictly more.
	p = Argument("x").Then(Argument("y")).Or(Argument("x"))
	m, err = p.ParseArgs([]string{"1", "2"}, WithOutput(io.Discard), AllowUnparsed(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "1", "y": "2"}, m)
}

func TestEqualConsumptionPrefersLeftAlternative(t *testing.T) {
	p := Argument("x").Or(Argument("y"))
	m, err := p.ParseArgs([]string{"1"}, WithOutput(io.Discard), AllowUnparsed(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "1"}, m)
}

func TestBindDispatchesOnOutput(t *testing.T) {
	p := Argument("command").Bind(func(out Output) Parser {
		if cmd, _ := lastValue(out); cmd == "serve" {
			return Option("port", OfType(Int)).Apply(func(rest Output) (Output, error) {
				return out.Concat(rest), nil
			})
		}
		return Return(out)
	})
	m := mustParse(t, p, "serve", "--port", "8080")
	assert.Equal(t, map[string]any{"command": "serve", "port": 8080}, m)

	m = mustParse(t, p, "status")
	assert.Equal(t, map[string]any{"command": "status"}, m)
}

func TestParserMonadLaws(t *testing.T) {
	out := Bindings(KeyValue{Key: "a", Value: 1})
	f := func(o Output) Parser { return Return(o.Concat(o)) }
	g := func(o Output) Parser {
		return Return(o.Concat(Bindings(KeyValue{Key: "b", Value: 2})))
	}

	// Left identity: binding f onto a pure parser is just f.
	assert.Equal(t, mustParse(t, f(out)), mustParse(t, Return(out).Bind(f)))

	// Right identity: binding Return changes nothing.
	p := Argument("x")
	assert.Equal(t, mustParse(t, p, "v"), mustParse(t, p.Bind(Return), "v"))

	// Associativity: nesting of binds does not matter.
	left := p.Bind(f).Bind(g)
	right := p.Bind(func(o Output) Parser { return f(o).Bind(g) })
	assert.Equal(t, mustParse(t, right, "v"), mustParse(t, left, "v"))
}

func TestUnorderedAcceptsBothOrders(t *testing.T) {
	p := Flag("a").Unordered(Flag("b"))
	want := map[string]any{"a": true, "b": true}
	assert.Equal(t, want, mustParse(t, p, "-a", "-b"))
	assert.Equal(t, want, mustParse(t, p, "-b", "-a"))
	mustFail(t, p, "-a")
}

func TestXorExactlyOne(t *testing.T) {
	p := Equals("a").Xor(Equals("b"))
	assert.Equal(t, map[string]any{"a": "a"}, mustParse(t, p, "a"))
	assert.Equal(t, map[string]any{"b": "b"}, mustParse(t, p, "b"))
}

func TestXorBothMatchFails(t *testing.T) {
	p := Equals("a").Xor(Equals("a"))
	err := mustFail(t, p, "a")
	var nm *NoMatchError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, "both alternatives matched", nm.Message())
}

func TestFails(t *testing.T) {
	p := Equals("a").Fails()
	assert.Equal(t, map[string]any{}, mustParse(t, p))
	err := mustFail(t, p, "a")
	var se *SuccessError
	assert.True(t, errors.As(err, &se))
}

func TestManyZeroOrMore(t *testing.T) {
	p := Flag("verbose").Many()
	assert.Equal(t, map[string]any{}, mustParse(t, p))
	assert.Equal(t, map[string]any{"verbose": true}, mustParse(t, p, "--verbose"))
	assert.Equal(t,
		map[string]any{"verbose": []any{true, true}},
		mustParse(t, p, "--verbose", "--verbose"))
}

func TestManyBacktracksIntoShorterMatch(t *testing.T) {
	// The greedy repetition must give back its last token so the trailing
	// positional can still match.
	p := Argument("xs").Many().Then(Argument("last"))
	m := mustParse(t, p, "a", "b", "c")
	assert.Equal(t, map[string]any{"xs": []any{"a", "b"}, "last": "c"}, m)
}

func TestMany1RequiresOne(t *testing.T) {
	p := Argument("xs").Many1()
	mustFail(t, p)
	assert.Equal(t, map[string]any{"xs": "a"}, mustParse(t, p, "a"))
}

func TestManyRespectsMaxRepeat(t *testing.T) {
	p := Argument("xs").Many()
	_, err := p.ParseArgs([]string{"a", "b", "c"}, WithOutput(io.Discard), WithMaxRepeat(2))
	require.Error(t, err)

	m, err := p.ParseArgs([]string{"a", "b", "c"}, WithOutput(io.Discard), WithMaxRepeat(5))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"xs": []any{"a", "b", "c"}}, m)
}

func TestManyOfEmptyParserTerminates(t *testing.T) {
	assert.Equal(t, map[string]any{}, mustParse(t, Empty().Many()))
}

func TestNTimes(t *testing.T) {
	p := Argument("x").NTimes(2)
	assert.Equal(t, map[string]any{"x": []any{"a", "b"}}, mustParse(t, p, "a", "b"))
	mustFail(t, p, "a")
	assert.Equal(t, map[string]any{}, mustParse(t, Argument("x").NTimes(0)))
}

func TestOptional(t *testing.T) {
	p := Flag("verbose").Optional()
	assert.Equal(t, map[string]any{}, mustParse(t, p))
	assert.Equal(t, map[string]any{"verbose": true}, mustParse(t, p, "--verbose"))
}

func TestDefaultsFallback(t *testing.T) {
	p := Equals("run").Defaults(KeyValue{Key: "mode", Value: "idle"})
	assert.Equal(t, map[string]any{"mode": "idle"}, mustParse(t, p))
	assert.Equal(t, map[string]any{"run": "run"}, mustParse(t, p, "run"))
}

func TestIgnoreDiscardsBindings(t *testing.T) {
	p := Flag("v").Ignore().Then(Argument("name"))
	assert.Equal(t, map[string]any{"name": "x"}, mustParse(t, p, "-v", "x"))
	mustFail(t, p, "x")
}

func TestApplyTransformsOutput(t *testing.T) {
	p := Flag("hello").Apply(func(out Output) (Output, error) {
		return out.Concat(out), nil
	})
	m := mustParse(t, p, "--hello")
	assert.Equal(t, map[string]any{"hello": []any{true, true}}, m)
}

func TestApplyRecoversPanic(t *testing.T) {
	p := Argument("x").Apply(func(Output) (Output, error) {
		panic("boom")
	})
	err := mustFail(t, p, "a")
	var ce *ConvertError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Message(), "boom")
}

func TestApplyWrapsForeignErrors(t *testing.T) {
	p := Argument("x").Apply(func(Output) (Output, error) {
		return Output{}, errors.New("rejected")
	})
	err := mustFail(t, p, "a")
	var ce *ConvertError
	require.True(t, errors.As(err, &ce))
}

func TestApplyKeepsParseErrors(t *testing.T) {
	want := &UnequalError{Want: "a", Got: "b"}
	p := Argument("x").Apply(func(Output) (Output, error) {
		return Output{}, want
	})
	err := mustFail(t, p, "b")
	var ue *UnequalError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, want, ue)
}

func TestWrapError(t *testing.T) {
	p := Equals("a").WrapError(&MissingError{Missing: "command"})
	err := mustFail(t, p)
	var me *MissingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "command", me.Missing)
}

func TestParseArgsRejectsUnparsed(t *testing.T) {
	err := mustFail(t, Flag("v"), "-v", "extra")
	var ue *UnexpectedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "extra", ue.Token)
}

func TestParseArgsAllowUnparsed(t *testing.T) {
	m, err := Argument("x").ParseArgs([]string{"a", "b"},
		WithOutput(io.Discard), AllowUnparsed(true))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "a"}, m)
}

func TestParseArgsHelp(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		var buf bytes.Buffer
		_, err := Flag("verbose").ParseArgs([]string{arg}, WithOutput(&buf))
		require.Error(t, err)
		var he *HelpError
		require.True(t, errors.As(err, &he))
		assert.Contains(t, buf.String(), "usage: --verbose")
	}
}

func TestParseArgsCheckHelpDisabled(t *testing.T) {
	m, err := Argument("x").ParseArgs([]string{"--help"},
		WithOutput(io.Discard), CheckHelp(false))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "--help"}, m)
}

func TestParseLowLevelCandidates(t *testing.T) {
	r := Argument("xs").Many().Parse("a", "b")
	require.NoError(t, r.Err())
	// Greedy candidate first, then each shorter prefix.
	lens := []int{}
	for _, pr := range r.Values() {
		lens = append(lens, pr.Unparsed.Len())
	}
	assert.Equal(t, []int{0, 1, 2}, lens)
}

func TestParseArgsOrExit(t *testing.T) {
	var codes []int
	osExit = func(code int) { codes = append(codes, code) }
	defer func() { osExit = os.Exit }()

	m := Flag("v").ParseArgsOrExit(WithArgs("-v"), WithOutput(io.Discard))
	assert.Equal(t, map[string]any{"v": true}, m)
	assert.Empty(t, codes)

	Flag("v").ParseArgsOrExit(WithArgs("--help"), WithOutput(io.Discard))
	require.Equal(t, []int{0}, codes)

	codes = nil
	Flag("v").ParseArgsOrExit(WithArgs("--bad"), WithOutput(io.Discard))
	require.Equal(t, []int{1}, codes)
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	_, err := Argument("x").ParseArgs([]string{"a"},
		WithOutput(io.Discard), WithTrace(&buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "item x")
}
