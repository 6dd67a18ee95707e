package argv

import "strings"

// Nonpositional combines parsers so that their arguments may appear on the
// command line in any order. Every permutation is attempted and the first
// successful one wins.
func Nonpositional(parsers ...Parser) Parser {
	return buildNonpositional(nil, parsers)
}

// NonpositionalRepeated is Nonpositional with an extra parser that may
// match zero or more times at any position, interleaved with the others.
func NonpositionalRepeated(repeated Parser, parsers ...Parser) Parser {
	return buildNonpositional(&repeated, parsers)
}

func buildNonpositional(repeated *Parser, parsers []Parser) Parser {
	sep := " "
	if len(parsers) > 3 {
		sep = "\n"
	}
	var usageParts []string
	for _, p := range parsers {
		usageParts = append(usageParts, p.usage)
	}
	if repeated != nil {
		usageParts = append(usageParts, repeated.usage)
	}

	parser := nonpositionalRec(repeated, parsers)
	if repeated != nil {
		parser = repeated.Many().Then(parser)
		parser.helps = mergeHelps(parser.helps, repeated.helps)
	}
	parser.usage = strings.Join(usageParts, sep)
	return parser
}

// nonpositionalRec unions one alternative per choice of head parser, each
// continuing recursively with the remaining parsers. Recursion happens
// inside bind closures so only the current level is ever constructed.
func nonpositionalRec(repeated *Parser, parsers []Parser) Parser {
	if len(parsers) == 0 {
		return Empty()
	}

	var alternatives []Parser

	// When every parser carries a default, none of the heads below will
	// accept empty input. Check that none of the required cores match and
	// fall through to the parsers themselves so the defaults all fire.
	allCores := true
	for _, p := range parsers {
		if p.nonoptional == nil {
			allCores = false
			break
		}
	}
	if allCores {
		noneMatch := parsers[0].nonoptional.Fails()
		for _, p := range parsers[1:] {
			noneMatch = noneMatch.Then(p.nonoptional.Fails())
		}
		inOrder := parsers[0]
		for _, p := range parsers[1:] {
			inOrder = inOrder.Then(p)
		}
		alternatives = append(alternatives, noneMatch.Then(inOrder))
	}

	for i := range parsers {
		head := parsers[i]
		tail := make([]Parser, 0, len(parsers)-1)
		tail = append(tail, parsers[:i]...)
		tail = append(tail, parsers[i+1:]...)
		if repeated != nil {
			head = head.Then(repeated.Many())
		}
		core := head
		if head.nonoptional != nil {
			core = *head.nonoptional
		}
		alternatives = append(alternatives, core.Bind(func(p1 Output) Parser {
			return nonpositionalRec(repeated, tail).Bind(func(p2 Output) Parser {
				return Return(p1.Concat(p2))
			})
		}))
	}

	parser := alternatives[0]
	for _, alt := range alternatives[1:] {
		parser = parser.Or(alt)
	}
	parts := make([]string, len(parsers))
	for i, p := range parsers {
		parts[i] = p.usage
	}
	parser.usage = strings.Join(parts, " ")
	helps := map[string]string{}
	for _, p := range parsers {
		helps = mergeHelps(helps, p.helps)
	}
	parser.helps = helps
	return parser
}
