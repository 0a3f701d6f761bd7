package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

var errNoTerminal = errors.New("stdin is not a terminal: pass --password-stdin to pipe the password")

// readSecret returns the password from the first line of stdin when
// fromStdin is set, and otherwise prompts on the terminal without echo.
func readSecret(cmd *cobra.Command, prompt string, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return emptyCheck(strings.TrimRight(line, "\r\n"))
	}

	fd := stdinFd()
	if !isTerminal(fd) {
		return "", errNoTerminal
	}
	w := cmd.ErrOrStderr()
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return emptyCheck(string(pw))
}

func emptyCheck(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("password must not be empty")
	}
	return pw, nil
}
