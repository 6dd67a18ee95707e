package argv

import (
	"fmt"
	"io"
	"strings"
)

// WithTrace logs every primitive application to w, one line per attempt
// with the tokens still remaining. Useful when debugging why an ambiguous
// grammar settled on a particular candidate.
func WithTrace(w io.Writer) ParseOption {
	return func(cfg *parseConfig) { cfg.trace = w }
}

func (st *state) tracef(tokens Sequence[string], format string, args ...any) {
	if st.cfg.trace == nil {
		return
	}
	fmt.Fprintf(st.cfg.trace, "%-30s %q\n",
		fmt.Sprintf(format, args...), strings.Join(tokens.Items(), " "))
}
