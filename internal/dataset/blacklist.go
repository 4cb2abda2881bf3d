// v0
// internal/dataset/blacklist.go
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ReadBlacklist loads one login per line. Blank lines and lines starting with
// '#' are ignored. A missing file is an empty blacklist.
func ReadBlacklist(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return []string{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("open blacklist: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	out := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return out, nil
}
