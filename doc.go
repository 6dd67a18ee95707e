// Package argv builds command-line argument parsers out of small composable
// pieces. Instead of registering flags against a global set, a parser is an
// ordinary value assembled with combinators, so argument grammars that flag
// packages cannot express, such as mutually dependent arguments or
// alternatives, stay first class.
//
// The primitive parsers each consume tokens from the argument list:
//
//	- Flag("verbose")            Match --verbose or -v, binding a bool.
//	- Option("count")            Match --count followed by a value, or --count=VALUE.
//	- Argument("name")           Consume one positional token.
//	- Equals("run")              Match one exact token.
//	- Done()                     Succeed only at end of input.
//
// Combinators compose them:
//
//	p := Flag("verbose").Or(Flag("quiet")).Then(Option("count", OfType(Int)))
//	values, err := p.ParseArgs(os.Args[1:])
//
// Then sequences two parsers, Or tries alternatives, Many repeats, and
// Optional and Defaults make a parser tolerate absence. Nonpositional
// accepts its parsers in any order on the command line.
//
// ParseArgs returns the bound values as a map[string]any. Repeated
// bindings for one key collect into a slice, and dotted keys such as
// "config.host" expand into nested maps. ParseArgsOrExit additionally
// prints usage and exits, the conventional behavior for a main package:
//
//	func main() {
//	    values := Flag("dry-run").ParseArgsOrExit()
//	    ...
//	}
//
// A leading --help or -h token prints generated usage text; WrapHelp adds
// the same interception to an inner parser, such as one subcommand branch.
package argv
