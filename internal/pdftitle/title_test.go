package pdftitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unidoc/unipdf/v3/extractor"
)

func TestIsValidTitle(t *testing.T) {
	reject := []string{
		"arXiv:2301.00001 [cs.CL]", // arxiv prefix, 4-digit run, bracket tag
		"a@b.com",                  // too short, has @
		"short",                    // length < 10
		"Proceedings [cs.LG] of something",  // bracket tag
		"corresponding author: foo@bar.edu", // e-mail line
		"Submitted to arXiv on 2023-01-01",  // 4-digit run + arxiv
		"   padded   ",                      // trimmed too short
		"短标题四个字",                       // 6 characters: short even though byte-heavy
		"基于注意力机制",                     // 7 characters
	}
	for _, s := range reject {
		if isValidTitle(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}

	accept := []string{
		"A Plain Twenty Char Sentence",
		"Neural Machine Translation of Rare Words",
		"On the 2023 state of the art", // 4-digit run but no "arxiv"
		"基于注意力机制的神经机器翻译",     // 12 characters
	}
	for _, s := range accept {
		if !isValidTitle(s) {
			t.Errorf("expected %q to be accepted", s)
		}
	}
}

func TestPickTitle_LargestFontWinsTiesByOrder(t *testing.T) {
	lines := []line{
		{text: "arXiv:2301.00001v2", fontSize: 30, order: 0}, // filtered out
		{text: "The Actual Paper Title Here", fontSize: 24, order: 1},
		{text: "Another Heading Of Same Size", fontSize: 24, order: 2},
		{text: "A much smaller subtitle line", fontSize: 12, order: 3},
	}

	title, found := pickTitle(lines)
	if !found {
		t.Fatal("expected a title")
	}
	if title != "The Actual Paper Title Here" {
		t.Fatalf("expected first largest-font candidate, got %q", title)
	}
}

func TestPickTitle_NoSurvivors(t *testing.T) {
	lines := []line{
		{text: "short", fontSize: 40},
		{text: "a@b.example.com address", fontSize: 30},
	}
	if _, found := pickTitle(lines); found {
		t.Fatal("expected no title")
	}
}

func TestCollectLines_GroupsByNewlineMarks(t *testing.T) {
	marks := []extractor.TextMark{
		{Text: "Big ", FontSize: 20},
		{Text: "Title", FontSize: 24},
		{Text: "\n", Meta: true},
		{Text: "small line", FontSize: 9},
		{Text: "\n", Meta: true},
	}

	lines := collectLines(marks)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].text != "Big Title" || lines[0].fontSize != 24 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].text != "small line" || lines[1].fontSize != 9 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestExtract_UnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if title, found := Extract(path); found {
		t.Fatalf("expected no title from junk file, got %q", title)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, found := Extract(filepath.Join(t.TempDir(), "absent.pdf")); found {
		t.Fatal("expected no title for a missing file")
	}
}
