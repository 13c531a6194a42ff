package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadTickers reads {"tickers": [...]}. Symbols are trimmed and uppercased;
// blanks and duplicates are dropped, first occurrence wins.
func LoadTickers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tickers: %w", err)
	}

	var doc struct {
		Tickers []string `json:"tickers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tickers %s: %w", path, err)
	}

	seen := make(map[string]bool, len(doc.Tickers))
	out := make([]string, 0, len(doc.Tickers))
	for _, t := range doc.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tickers in %s", path)
	}
	return out, nil
}
