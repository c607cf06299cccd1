package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

// resolvePassphrase finds the master password in order of precedence:
// flag/config value, environment variable, interactive prompt. The returned
// slice is owned by the caller; Unlock wipes it.
func resolvePassphrase(envVar, prompt string) ([]byte, error) {
	if p := viper.GetString("vault.passphrase"); p != "" {
		return []byte(p), nil
	}
	if p := os.Getenv(envVar); p != "" {
		return []byte(p), nil
	}
	return readPassword(prompt)
}

// readPassword prompts on stderr and reads without echo. When stdin is not
// a terminal (piped input) it falls back to reading one line.
func readPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
