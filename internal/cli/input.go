package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// ask prints prompt and reads one trimmed line. A partial line before EOF
// is returned as-is.
func ask(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askPassword reads a password without echo.
func askPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := readPassword()
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// confirmer returns a y/N prompt bound to r and w.
func confirmer(r *bufio.Reader, w io.Writer) func(string) bool {
	return func(prompt string) bool {
		ans, err := ask(r, w, prompt+" [y/N]")
		if err != nil {
			return false
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes"
	}
}
