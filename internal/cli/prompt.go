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

var promptReader = bufio.NewReader(os.Stdin)

func setPromptReader(r io.Reader) {
	promptReader = bufio.NewReader(r)
}

// readLine prints label and reads one line. io.EOF is returned only when
// the input ended without any text.
func readLine(label string) (string, error) {
	if label != "" {
		fmt.Fprint(os.Stdout, label)
	}
	line, err := promptReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptLine(label string) (string, error) {
	line, err := readLine(label + ": ")
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return line, err
}

func promptConfirm(label string) (bool, error) {
	line, err := promptLine(label + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// promptSecret reads a line without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}
	fmt.Fprintf(os.Stdout, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
