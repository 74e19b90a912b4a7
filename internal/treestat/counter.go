package treestat

import (
	"bufio"
	"io"
	"strings"
)

// DebtTags are the technical-debt markers tallied while counting.
var DebtTags = []string{"TODO", "FIXME", "BUG", "HACK", "XXX", "NOTE"}

// charsPerToken is the divisor of the token estimate.
const charsPerToken = 4

// FileCounts holds the tallies for a single file.
type FileCounts struct {
	Lines  int
	Chars  int
	Tokens int
	Tags   map[string]int
}

// CountReader streams r and tallies lines, characters, estimated tokens and
// debt tags. Invalid UTF-8 bytes count as one character each. "\r\n" and a
// lone "\r" are normalized to a single newline character.
func CountReader(r io.Reader) (FileCounts, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		counts      FileCounts
		line        strings.Builder
		pendingCR   bool
		lastNewline bool
	)
	counts.Tags = make(map[string]int)

	endLine := func() {
		counts.Lines++
		counts.Chars++
		countTags(line.String(), counts.Tags)
		line.Reset()
		lastNewline = true
	}

	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			if err != io.EOF {
				return FileCounts{}, err
			}
			break
		}
		if pendingCR {
			pendingCR = false
			if ch == '\n' {
				continue
			}
		}
		switch ch {
		case '\r':
			endLine()
			pendingCR = true
			continue
		case '\n':
			endLine()
			continue
		}
		line.WriteRune(ch)
		counts.Chars++
		lastNewline = false
	}

	if counts.Chars > 0 && !lastNewline {
		counts.Lines++
		countTags(line.String(), counts.Tags)
	}
	counts.Tokens = counts.Chars / charsPerToken
	return counts, nil
}

func countTags(line string, tags map[string]int) {
	if line == "" {
		return
	}
	for _, tag := range DebtTags {
		if n := strings.Count(line, tag); n > 0 {
			tags[tag] += n
		}
	}
}
