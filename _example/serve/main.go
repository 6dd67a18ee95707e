package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/repr"

	"github.com/combinate/argv"
)

// A small server launcher: required bind address, optional port and worker
// count, flags in any order, e.g.
//
//	serve 0.0.0.0 --port 9090 --verbose --timeout 30s
func main() {
	p := argv.Nonpositional(
		argv.Argument("addr", argv.Help("Address to bind.")),
		argv.Option("port", argv.Default(8080), argv.OfType(argv.Int), argv.Help("Port to listen on.")),
		argv.Option("timeout", argv.Default(10*time.Second), argv.OfType(argv.Duration)),
		argv.Flag("verbose", argv.Default(false)),
	)

	values := p.ParseArgsOrExit(argv.WithColor(true))
	fmt.Println("starting with:")
	repr.Println(values)
}
