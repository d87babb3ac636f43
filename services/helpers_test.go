package services

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/models"
)

func TestFormatChatHistory(t *testing.T) {
	got := FormatChatHistory([]models.ChatTurn{
		{Question: "What is Atlas?", Answer: "A cloud database."},
		{Question: "Who runs it?", Answer: "MongoDB."},
	})
	want := "Human: What is Atlas?\nAssistant: A cloud database.\nHuman: Who runs it?\nAssistant: MongoDB."
	if got != want {
		t.Errorf("FormatChatHistory =\n%q\nwant\n%q", got, want)
	}
	if FormatChatHistory(nil) != "" {
		t.Error("empty history should format to empty string")
	}
}

func TestFormattedText(t *testing.T) {
	tests := map[string]string{
		"line one\n\n\nline two":   "line one line two",
		"data - base design":       "database design",
		"too    many \t spaces":    "too many spaces",
		"hyphen - \nated   word\n": "hyphen - ated word ",
	}
	for in, want := range tests {
		if got := FormattedText(in); got != want {
			t.Errorf("FormattedText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetSourcesMapsAssistantMessagesToRecords(t *testing.T) {
	records := [][]string{{"a1", "a2"}, {"b1"}}
	tests := []struct {
		role  string
		index int
		want  []string
	}{
		{models.RoleAssistant, 0, []string{}},
		{models.RoleAssistant, 1, []string{}},
		{models.RoleUser, 2, []string{}},
		{models.RoleAssistant, 2, []string{"a1", "a2"}},
		{models.RoleAssistant, 3, []string{}},
		{models.RoleAssistant, 4, []string{"b1"}},
		{models.RoleAssistant, 6, []string{}},
	}
	for _, tt := range tests {
		got := GetSources(records, tt.role, tt.index)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("GetSources(%s, %d) = %v, want %v", tt.role, tt.index, got, tt.want)
		}
	}
}

func TestInitialMessages(t *testing.T) {
	msgs := InitialMessages()
	if len(msgs) != 1 || msgs[0].Role != models.RoleAssistant || msgs[0].Content == "" {
		t.Errorf("unexpected initial messages: %+v", msgs)
	}
}

func TestSanitizeQuestion(t *testing.T) {
	if got := sanitizeQuestion("  What\nis\nAtlas?\n"); got != "What is Atlas?" {
		t.Errorf("sanitizeQuestion = %q", got)
	}
}

func TestNormalizePageTextKeepsBreaks(t *testing.T) {
	tests := map[string]string{
		"line  one\nline\ttwo":             "line one\nline two",
		"para one\n  \n\n\npara two  ":     "para one\n\npara two",
		"data - base design.\r\nNext line": "database design.\nNext line",
	}
	for in, want := range tests {
		if got := normalizePageText(in); got != want {
			t.Errorf("normalizePageText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadDocumentReadsTextFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\r\n\r\nAtlas is managed.\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pages, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(pages) != 1 || pages[0].Number != 1 || pages[0].Text != "# Notes\n\nAtlas is managed." {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestLoadPDFRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPDF(path); !errors.Is(err, apperr.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestFileChecksumChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	os.WriteFile(path, []byte("v1"), 0o644)
	first, err := FileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte("v2"), 0o644)
	second, _ := FileChecksum(path)
	if first == second || len(first) != 64 {
		t.Errorf("checksums %q %q", first, second)
	}
}
