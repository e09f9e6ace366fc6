// Package pdftitle guesses a paper title from the first PDF page: the text
// line set in the largest font usually is the title. Best-effort only; the
// caller falls back to the filename when nothing usable is found.
package pdftitle

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"github.com/leyuan-dev/paper-translator/internal/logger"
)

type line struct {
	text     string
	fontSize float64
	order    int
}

var fourDigitRun = regexp.MustCompile(`\d{4}`)
var bracketTag = regexp.MustCompile(`\[[^\]]*\]`)

// Extract returns (title, true) when a plausible title line is found on the
// first page. Parse failures of any kind report (_, false), never an error.
func Extract(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		logger.L().Debug("pdftitle: open failed", zap.String("path", path), zap.Error(err))
		return "", false
	}
	defer f.Close()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		logger.L().Debug("pdftitle: parse failed", zap.String("path", path), zap.Error(err))
		return "", false
	}

	numPages, err := reader.GetNumPages()
	if err != nil || numPages == 0 {
		return "", false
	}

	page, err := reader.GetPage(1)
	if err != nil {
		return "", false
	}

	ex, err := extractor.New(page)
	if err != nil {
		return "", false
	}

	pageText, _, _, err := ex.ExtractPageText()
	if err != nil {
		return "", false
	}

	lines := collectLines(pageText.Marks().Elements())
	return pickTitle(lines)
}

// collectLines groups text marks into lines, tracking the largest span font
// size seen within each line. unipdf emits synthetic newline marks between
// lines of the page layout.
func collectLines(marks []extractor.TextMark) []line {
	var lines []line
	var b strings.Builder
	maxSize := 0.0

	flush := func() {
		text := strings.TrimSpace(b.String())
		if text != "" {
			lines = append(lines, line{text: text, fontSize: maxSize, order: len(lines)})
		}
		b.Reset()
		maxSize = 0
	}

	for _, m := range marks {
		if strings.Contains(m.Text, "\n") {
			flush()
			continue
		}
		b.WriteString(m.Text)
		if m.FontSize > maxSize {
			maxSize = m.FontSize
		}
	}
	flush()

	return lines
}

// pickTitle keeps lines passing isValidTitle and returns the one with the
// largest font size; ties resolve to the earliest line on the page.
func pickTitle(lines []line) (string, bool) {
	candidates := make([]line, 0, len(lines))
	for _, l := range lines {
		if isValidTitle(l.text) {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].fontSize > candidates[j].fontSize
	})
	return candidates[0].text, true
}

// isValidTitle filters header noise typical of arXiv first pages: identifier
// lines, category tags and author e-mail lines.
func isValidTitle(s string) bool {
	trimmed := strings.TrimSpace(s)
	// characters, not bytes: CJK noise lines are short but byte-heavy
	if utf8.RuneCountInString(trimmed) < 10 {
		return false
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "arxiv") {
		return false
	}
	if fourDigitRun.MatchString(trimmed) && strings.Contains(lower, "arxiv") {
		return false
	}
	if bracketTag.MatchString(trimmed) {
		return false
	}
	if strings.Contains(trimmed, "@") {
		return false
	}
	return true
}
