package importer

import "strings"

const sniffSampleSize = 4096

// candidateDelims is also the tie-break precedence.
var candidateDelims = []rune{',', ';', '\t', '|'}

// sniffDelimiter infers the field delimiter from a leading sample of the
// text. A delimiter that appears the same number of times on every sampled
// line wins; among consistent candidates the highest per-line count wins,
// ties broken by candidateDelims order. If nothing matches, the default is
// the standard comma dialect.
func sniffDelimiter(text string) rune {
	if len(text) > sniffSampleSize {
		text = text[:sniffSampleSize]
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 10 {
			break
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestCount := 0
	consistent := false
	for _, cand := range candidateDelims {
		first := strings.Count(lines[0], string(cand))
		if first == 0 {
			continue
		}
		same := true
		for _, line := range lines[1:] {
			if strings.Count(line, string(cand)) != first {
				same = false
				break
			}
		}
		switch {
		case same && (!consistent || first > bestCount):
			best, bestCount, consistent = cand, first, true
		case !consistent && first > bestCount:
			best, bestCount = cand, first
		}
	}
	return best
}
