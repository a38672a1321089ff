package api

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadKeys reads one token per line. Lines are trimmed; blank lines and
// lines starting with '#' are ignored.
func LoadKeys(r io.Reader) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	return tokens, nil
}

// LoadKeyFile opens path and builds a KeyPool from it.
func LoadKeyFile(path string) (*KeyPool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	tokens, err := LoadKeys(f)
	if err != nil {
		return nil, err
	}
	pool := NewKeyPool(tokens)
	if pool.IsEmpty() {
		return nil, fmt.Errorf("key file %s contains no keys", path)
	}
	return pool, nil
}
