package resolve

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Console asks a human on a terminal. Options are listed with their index;
// the answer is an index or an exact option label. End of input skips.
type Console struct {
	In    io.Reader
	Out   io.Writer
	Color bool

	scanner *bufio.Scanner
}

// Auto returns a Console on stdin/stderr when stdin is a terminal and a
// Default resolver otherwise.
func Auto(logger *slog.Logger) Resolver {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return Default{Logger: logger}
	}
	return &Console{In: os.Stdin, Out: os.Stderr, Color: isatty.IsTerminal(os.Stderr.Fd())}
}

type label struct {
	text  string
	index int
}

func (c *Console) Resolve(q Question) (int, bool) {
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.In)
	}
	heading := color.New(color.FgCyan, color.Bold)
	hint := color.New(color.Faint)
	bad := color.New(color.FgRed)
	for _, p := range []*color.Color{heading, hint, bad} {
		if c.Color {
			p.EnableColor()
		} else {
			p.DisableColor()
		}
	}

	sorted := make([]label, len(q.Options))
	for i, o := range q.Options {
		sorted[i] = label{text: o, index: i}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].text < sorted[j].text })

	switch q.Kind {
	case Overload:
		heading.Fprintf(c.Out, "Several overloads of %s exist. Which one should be exposed?\n", q.Subject)
	default:
		heading.Fprintf(c.Out, "Which member of %s backs constructor parameter %q?\n", q.Subject, q.Field)
	}
	for i, o := range q.Options {
		fmt.Fprintf(c.Out, "  [%d] %s\n", i, o)
	}
	hint.Fprintln(c.Out, "  [s] skip")

	for {
		fmt.Fprint(c.Out, "> ")
		if !c.scanner.Scan() {
			fmt.Fprintln(c.Out)
			return -1, false
		}
		answer := strings.TrimSpace(c.scanner.Text())
		if answer == "s" || answer == "skip" {
			return -1, false
		}
		if i, err := strconv.Atoi(answer); err == nil && i >= 0 && i < len(q.Options) {
			return i, true
		}
		n := sort.Search(len(sorted), func(i int) bool { return sorted[i].text >= answer })
		if answer != "" && n < len(sorted) && sorted[n].text == answer {
			return sorted[n].index, true
		}
		bad.Fprintf(c.Out, "%q is not a valid choice\n", answer)
	}
}
