package argv

import (
	"io"
	"os"
)

const defaultMaxRepeat = 80

// A ParseOption adjusts the behaviour of a single ParseArgs invocation.
// Configuration is explicit and per-call; the package keeps no mutable
// global state.
type ParseOption func(cfg *parseConfig)

type parseConfig struct {
	output        io.Writer
	trace         io.Writer
	maxRepeat     int
	color         bool
	allowUnparsed bool
	checkHelp     bool
	args          []string
}

func defaultParseConfig() *parseConfig {
	return &parseConfig{
		output:    os.Stdout,
		maxRepeat: defaultMaxRepeat,
		checkHelp: true,
	}
}

func newParseConfig(options []ParseOption) *parseConfig {
	cfg := defaultParseConfig()
	for _, option := range options {
		option(cfg)
	}
	return cfg
}

// WithOutput directs usage and error rendering to w instead of standard
// output. Pass io.Discard to suppress printing entirely.
func WithOutput(w io.Writer) ParseOption {
	return func(cfg *parseConfig) { cfg.output = w }
}

// WithMaxRepeat bounds how many times Many and Many1 will apply their
// parser, guarding against runaway recursion on parsers that can match the
// empty input.
func WithMaxRepeat(n int) ParseOption {
	return func(cfg *parseConfig) { cfg.maxRepeat = n }
}

// WithColor enables colorized rendering of the usage header and error
// message.
func WithColor(enabled bool) ParseOption {
	return func(cfg *parseConfig) { cfg.color = enabled }
}

// AllowUnparsed controls whether trailing unconsumed arguments are an
// error. The default is false: ParseArgs appends Done to the parser.
func AllowUnparsed(allow bool) ParseOption {
	return func(cfg *parseConfig) { cfg.allowUnparsed = allow }
}

// CheckHelp controls interception of a leading --help or -h token. Enabled
// by default.
func CheckHelp(check bool) ParseOption {
	return func(cfg *parseConfig) { cfg.checkHelp = check }
}

// WithArgs overrides the argument vector consumed by ParseArgsOrExit.
func WithArgs(args ...string) ParseOption {
	return func(cfg *parseConfig) { cfg.args = args }
}

// ConvertFunc converts a raw token into a typed value. A returned error
// becomes a parse failure, not a crash.
type ConvertFunc func(s string) (any, error)

// An ArgOption configures the Flag, Option and Argument primitives.
type ArgOption func(cfg *argConfig)

type argConfig struct {
	def        any
	hasDefault bool
	help       string
	short      bool
	surface    string
	convert    ConvertFunc
	choices    []string
	nargs      int
	nesting    bool
}

func newArgConfig(options []ArgOption) *argConfig {
	cfg := &argConfig{short: true, nargs: 1, nesting: true}
	for _, option := range options {
		option(cfg)
	}
	return cfg
}

// Default provides a fallback value bound when the argument is absent. The
// primitive then never fails outright for missing input.
func Default(v any) ArgOption {
	return func(cfg *argConfig) {
		cfg.def = v
		cfg.hasDefault = true
	}
}

// Help attaches a help line shown under the usage block.
func Help(text string) ArgOption {
	return func(cfg *argConfig) { cfg.help = text }
}

// NoShort disables the single-dash single-letter form that Flag and Option
// otherwise accept alongside the long form.
func NoShort() ArgOption {
	return func(cfg *argConfig) { cfg.short = false }
}

// WithString overrides the surface string matched on the command line, for
// example WithString("--value") on Flag("v").
func WithString(s string) ArgOption {
	return func(cfg *argConfig) { cfg.surface = s }
}

// OfType converts the parsed value with f, e.g. OfType(Int).
func OfType(f ConvertFunc) ArgOption {
	return func(cfg *argConfig) { cfg.convert = f }
}

// Choices restricts the accepted values for an Option.
func Choices(values ...string) ArgOption {
	return func(cfg *argConfig) { cfg.choices = values }
}

// NArgs makes an Option consume n space-separated values, bound as a list.
func NArgs(n int) ArgOption {
	return func(cfg *argConfig) { cfg.nargs = n }
}

// NoNesting disables dotted-key expansion for this primitive.
func NoNesting() ArgOption {
	return func(cfg *argConfig) { cfg.nesting = false }
}
