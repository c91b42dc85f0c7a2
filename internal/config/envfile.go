// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
)

// ParsePairs parses flat key=value content into a map.
//
// Format:
//   - Lines starting with # are comments
//   - Empty lines are ignored
//   - KEY=value (unquoted; a trailing " #..." inline comment is stripped)
//   - KEY="value" (double-quoted, escapes: \n, \r, \t, \\, \")
//   - KEY='value' (single-quoted, literal)
//   - an optional leading "export " is ignored
//
// The filename parameter is only used in error messages.
func ParsePairs(content []byte, filename string) (map[string]string, error) {
	pairs := make(map[string]string)

	for i, line := range strings.Split(string(content), "\n") {
		lineNum := i + 1

		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: invalid format (missing '=')", filename, lineNum)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%s:%d: empty key", filename, lineNum)
		}

		parsed, err := parseValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineNum, err)
		}

		pairs[key] = parsed
	}

	return pairs, nil
}

// parseValue handles quoting and escape sequences for a single value.
func parseValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return unescapeDoubleQuoted(value[1 : len(value)-1]), nil
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		return value[1 : len(value)-1], nil
	}

	// Unquoted: strip an inline comment introduced by " #".
	if idx := strings.Index(value, " #"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}

	return value, nil
}

func unescapeDoubleQuoted(value string) string {
	var out strings.Builder
	out.Grow(len(value))

	for i := 0; i < len(value); i++ {
		if value[i] != '\\' || i+1 >= len(value) {
			out.WriteByte(value[i])
			continue
		}
		i++
		switch value[i] {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case '\\', '"':
			out.WriteByte(value[i])
		default:
			// Unknown escape: keep both characters.
			out.WriteByte('\\')
			out.WriteByte(value[i])
		}
	}

	return out.String()
}
