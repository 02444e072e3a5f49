// Package uvl derives the metrics stored on UVL dataset versions from UVL
// feature-model text: feature and constraint counts.
//
// This is not a full UVL parser. It scans the indentation-based "features"
// and "constraints" blocks, which is sufficient for counting and keeps the
// hub independent of any feature-modeling toolchain.
package uvl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// group keywords inside a features block that do not name a feature.
var groupKeywords = map[string]bool{
	"mandatory":   true,
	"optional":    true,
	"alternative": true,
	"or":          true,
}

// top-level section headers of a UVL document.
var sectionKeywords = map[string]bool{
	"namespace":   true,
	"include":     true,
	"imports":     true,
	"features":    true,
	"constraints": true,
}

// Counts holds the metrics of a single UVL model.
type Counts struct {
	Features    int
	Constraints int
}

// Count scans a UVL document and counts its features and constraints.
func Count(r io.Reader) (Counts, error) {
	var counts Counts
	section := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		indented := line != trimmed
		word := strings.Fields(trimmed)[0]
		if !indented && sectionKeywords[strings.ToLower(word)] {
			section = strings.ToLower(word)
			continue
		}

		switch section {
		case "features":
			if !groupKeywords[strings.ToLower(word)] {
				counts.Features++
			}
		case "constraints":
			counts.Constraints++
		}
	}
	if err := scanner.Err(); err != nil {
		return Counts{}, fmt.Errorf("scan uvl: %w", err)
	}
	return counts, nil
}

// CountFile counts features and constraints in the UVL file at path.
func CountFile(path string) (Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return Counts{}, fmt.Errorf("open uvl %s: %w", path, err)
	}
	defer f.Close()
	return Count(f)
}
