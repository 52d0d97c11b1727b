// Package shellwords splits and joins command lines using POSIX shell word
// rules. It covers the subset compilers and param files actually produce:
// whitespace separation, single and double quotes, and backslash escapes.
package shellwords

import (
	"fmt"
	"strings"
)

// Split breaks a command line into its argument words.
func Split(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case ' ', '\t', '\n', '\r':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		case '\'':
			inWord = true
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				current.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated single quote in %q", line)
			}
			i = j
		case '"':
			inWord = true
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				if runes[j] == '\\' && j+1 < len(runes) {
					next := runes[j+1]
					// Inside double quotes, backslash only escapes these.
					if next == '"' || next == '\\' || next == '$' || next == '`' {
						current.WriteRune(next)
						j += 2
						continue
					}
				}
				current.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated double quote in %q", line)
			}
			i = j
		case '\\':
			inWord = true
			if i+1 < len(runes) {
				i++
				current.WriteRune(runes[i])
			}
		default:
			inWord = true
			current.WriteRune(c)
		}
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}

// Join renders words as a single shell-safe command line.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = Quote(w)
	}
	return strings.Join(quoted, " ")
}

// Quote returns w quoted for safe use as a single shell word.
func Quote(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n\r\"'\\$`&|;<>(){}*?[]~#!") {
		return w
	}
	// Single quotes pass everything literally except the quote itself.
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
