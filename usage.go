package argv

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// binaryUsage joins the usage strings of a binary combinator's operands,
// skipping empty sides. Brackets are added only when both sides contribute.
func binaryUsage(a, op, b string, brackets bool) string {
	var parts []string
	for _, u := range []string{a, b} {
		if u != "" {
			parts = append(parts, u)
		}
	}
	usage := strings.Join(parts, op)
	if len(parts) > 1 && brackets {
		usage = "[" + usage + "]"
	}
	return usage
}

// seqUsage composes the usage of two sequenced parsers. Single-line
// operands join with a space; once either side spans multiple lines the
// composition switches to newlines, indenting a multi-line right side under
// a single-line left side so nesting depth stays readable.
func seqUsage(a, b string) string {
	op := " "
	prefix := ""
	if a != "" {
		if strings.Contains(a, "\n") {
			op = "\n"
		} else {
			prefix = "  "
		}
	}
	if b != "" && strings.Contains(b, "\n") {
		op = "\n"
		lines := strings.Split(b, "\n")
		for i, line := range lines {
			lines[i] = prefix + line
		}
		b = strings.Join(lines, "\n")
	}
	return binaryUsage(a, op, b, false)
}

// mergeHelps unions two help maps, right side winning on key collision.
func mergeHelps(a, b map[string]string) map[string]string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// renderError prints the usage block and the failure's message to the
// configured writer. An explicit help request prints only the usage carried
// by the *HelpError.
func (p Parser) renderError(cfg *parseConfig, err error) {
	header := func(s string) string { return s }
	message := func(s string) string { return s }
	if cfg.color {
		bold := color.New(color.Bold)
		red := color.New(color.FgRed)
		header = func(s string) string { return bold.Sprint(s) }
		message = func(s string) string { return red.Sprint(s) }
	}

	printUsage := func(usage string) {
		if strings.Contains(usage, "\n") {
			fmt.Fprintln(cfg.output, header("usage:"))
			indent := strings.Repeat(" ", len("usage:"))
			for _, line := range strings.Split(usage, "\n") {
				fmt.Fprintln(cfg.output, indent+line)
			}
		} else {
			fmt.Fprintln(cfg.output, header("usage:"), usage)
		}
		keys := maps.Keys(p.helps)
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(cfg.output, "%s: %s\n", k, p.helps[k])
		}
	}

	var help *HelpError
	if errors.As(err, &help) {
		printUsage(help.Usage)
		return
	}
	if p.usage != "" {
		printUsage(p.usage)
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(cfg.output, message(msg))
	}
}
