package main

import (
	"github.com/alecthomas/repr"

	"github.com/combinate/argv"
)

// Git-style subcommands built out of alternatives, e.g.
//
//	vc commit --message "fix" --amend
//	vc checkout main
func main() {
	commit := argv.Equals("commit").Ignore().Then(argv.Nonpositional(
		argv.Option("message", argv.NoShort()),
		argv.Flag("amend", argv.Default(false)),
	))
	checkout := argv.Equals("checkout").Ignore().Then(argv.Argument("branch"))

	repr.Println(commit.Or(checkout).ParseArgsOrExit())
}
