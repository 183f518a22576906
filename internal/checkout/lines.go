package checkout

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// ReadLines returns the non-blank lines of r in order, without line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read basket: %w", err)
	}
	return lines, nil
}
