// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNonInteractive is returned when a question needs an answer but stdin is not a terminal.
var ErrNonInteractive = errors.New("non-interactive stdin")

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stdout,
		IsInteractive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm prints question followed by " (y/n): " and accepts "y" or "yes".
// force answers yes without reading. hint names the flag that skips the question.
func (c Confirmer) Confirm(question, hint string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("%w: %s", ErrNonInteractive, hint)
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	var in io.Reader = c.In
	if in == nil {
		in = strings.NewReader("")
	}
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (c Confirmer) ConfirmOverwrite(path string, force bool) (bool, error) {
	return c.Confirm(fmt.Sprintf("Warning: Output file %s already exists. Overwrite?", path), "use -y to overwrite existing output", force)
}

// ConfirmNeverTranslate asks before translating a page whose host the user
// marked as never-translate.
func (c Confirmer) ConfirmNeverTranslate(host string, force bool) (bool, error) {
	return c.Confirm(fmt.Sprintf("%s is on the never-translate list. Translate anyway?", host), "use -y to translate anyway", force)
}
