package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptAccount interactively collects session parameters from the
// terminal. Secret values are read without echo when stdin is a TTY.
func PromptAccount() (*Account, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Account label (e.g. your c_user id): ")
	label, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	fmt.Print("c_user cookie: ")
	cUser, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	xs, err := readSecret(reader, "xs cookie: ")
	if err != nil {
		return nil, err
	}

	fbDtsg, err := readSecret(reader, "fb_dtsg token: ")
	if err != nil {
		return nil, err
	}

	fmt.Print("User agent (blank for default): ")
	userAgent, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	if label == "" {
		label = cUser
	}

	return &Account{
		Label:     label,
		CUser:     cUser,
		XS:        xs,
		FBDtsg:    fbDtsg,
		UserAgent: userAgent,
	}, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readSecret(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return readLine(reader)
}
