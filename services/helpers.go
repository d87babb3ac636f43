package services

import (
	"regexp"
	"strings"

	"pdf-chat-backend/models"
)

var (
	newlineRun   = regexp.MustCompile(`\n+`)
	hyphenBreak  = regexp.MustCompile(`(\w) - (\w)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	inlineSpace  = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// FormatChatHistory renders turns as "Human: q\nAssistant: a" lines.
func FormatChatHistory(turns []models.ChatTurn) string {
	lines := make([]string, len(turns))
	for i, turn := range turns {
		lines[i] = "Human: " + turn.Question + "\nAssistant: " + turn.Answer
	}
	return strings.Join(lines, "\n")
}

// FormattedText flattens newlines, rejoins words hyphenated across a line break and
// collapses whitespace.
func FormattedText(text string) string {
	text = newlineRun.ReplaceAllString(text, " ")
	text = hyphenBreak.ReplaceAllString(text, "${1}${2}")
	return whitespaceRe.ReplaceAllString(text, " ")
}

// normalizePageText joins hyphenated words and collapses spaces within each line. Line
// and paragraph breaks are kept for the splitter.
func normalizePageText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = inlineSpace.ReplaceAllString(line, " ")
		lines[i] = strings.TrimSpace(hyphenBreak.ReplaceAllString(line, "${1}${2}"))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// GetSources finds the citation record for a transcript message. Transcripts alternate
// user and assistant messages after the greeting, so the assistant answer at index i
// (i >= 2, even offset from 2) owns record (i-2)/2.
func GetSources(records [][]string, role string, index int) []string {
	if role != models.RoleAssistant || index < 2 || (index-2)%2 != 0 {
		return []string{}
	}
	i := (index - 2) / 2
	if i >= len(records) || records[i] == nil {
		return []string{}
	}
	return records[i]
}

// InitialMessages is the greeting shown before the first question.
func InitialMessages() []models.ChatMessage {
	return []models.ChatMessage{
		{ID: "0", Role: models.RoleAssistant, Content: "Hi! I am your PDF assistant"},
	}
}

// sanitizeQuestion trims the question and puts it on one line.
func sanitizeQuestion(question string) string {
	return strings.ReplaceAll(strings.TrimSpace(question), "\n", " ")
}
