package main

import (
	"bufio"
	"os"
	"strings"
)

// loadKeywordsFile reads one markKeywords entry per line, skipping empty
// lines and "//"-prefixed comments. Adapted from the teacher's own
// ParseGlobals, which read a template global's "name = value" per line in
// a globals file; a keyword has no associated value, so the line is the
// whole entry.
func loadKeywordsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keywords []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		keywords = append(keywords, line)
	}
	return keywords, scanner.Err()
}
