package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Prompt asks the user for input with a prompt message.
func Prompt(message string) (string, error) {
	fmt.Fprintf(os.Stdout, "%s: ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptChoice asks the user to pick one of the given single-letter choices,
// repeating the question until an acceptable answer arrives.
func PromptChoice(message string, choices []string) (string, error) {
	for {
		input, err := Prompt(fmt.Sprintf("%s [%s]", message, strings.Join(choices, "/")))
		if err != nil {
			return "", err
		}

		input = strings.ToLower(input)
		for _, choice := range choices {
			if input == choice {
				return choice, nil
			}
		}

		Warning("please answer one of: %s", strings.Join(choices, ", "))
	}
}

// PromptMultiline reads lines until a lone "." terminator, for editing text
// that spans multiple lines.
func PromptMultiline(message string) (string, error) {
	fmt.Fprintf(os.Stdout, "%s (end with a single '.' on its own line):\n", message)

	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return strings.Join(lines, "\n"), nil
}
