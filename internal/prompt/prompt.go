// Package prompt is the human disambiguation channel: the matcher and
// merge policy call it when they cannot decide between candidates on
// their own. Implementations are synchronous collaborators; the caller
// treats them like any other fallible external call.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// None is returned when the operator picks "none of these" (or when a
// non-interactive policy always declines).
const None = -1

// Disambiguator presents an ordered list of options and returns the index
// of the chosen one, or None.
type Disambiguator interface {
	Choose(ctx context.Context, question string, options []string) (int, error)
}

// Terminal prompts on the terminal with a numbered list.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal creates a Terminal over stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

// Choose implements Disambiguator. It re-asks on unparsable input and
// accepts 0 for "none of these".
func (t *Terminal) Choose(ctx context.Context, question string, options []string) (int, error) {
	fmt.Fprintln(t.Out, question)
	for i, opt := range options {
		fmt.Fprintf(t.Out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintln(t.Out, "  0) None of these")

	scanner := bufio.NewScanner(t.In)
	for {
		if err := ctx.Err(); err != nil {
			return None, eris.Wrap(err, "prompt: cancelled")
		}

		fmt.Fprint(t.Out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return None, eris.Wrap(err, "prompt: read answer")
			}
			return None, eris.New("prompt: input closed")
		}

		answer := strings.TrimSpace(scanner.Text())
		n, err := strconv.Atoi(answer)
		if err != nil || n < 0 || n > len(options) {
			fmt.Fprintf(t.Out, "Please enter a number between 0 and %d.\n", len(options))
			continue
		}
		if n == 0 {
			return None, nil
		}
		return n - 1, nil
	}
}

// AutoNone answers every question with "none of these", for
// non-interactive deployments. Each deferred question is logged so a
// later interactive run can settle it.
type AutoNone struct{}

// Choose implements Disambiguator.
func (AutoNone) Choose(_ context.Context, question string, options []string) (int, error) {
	zap.L().Info("disambiguation deferred, answering none",
		zap.String("question", question),
		zap.Int("options", len(options)),
	)
	return None, nil
}
