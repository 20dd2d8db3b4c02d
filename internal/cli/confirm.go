package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prompts for a destructive action and reads one line from in. Only
// the literal answer "yes" confirms; anything else, including EOF, declines.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s Type 'yes' to continue: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}
