package game

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxNameLength   = 20
	MaxTopicLength  = 50
	MaxAnswerLength = 30
)

func ValidateName(name string) (string, error) {
	return validateText("name", name, MaxNameLength)
}

func ValidateTopic(text string) (string, error) {
	return validateText("topic", text, MaxTopicLength)
}

func ValidateAnswer(text string) (string, error) {
	return validateText("answer", text, MaxAnswerLength)
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := NormalizeText(text)
	if trimmed == "" {
		return "", invalidInput("%s is required", label)
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", invalidInput("%s must be %d characters or fewer", label, maxLen)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", invalidInput("%s contains unsupported characters", label)
		}
	}
	return trimmed, nil
}

// NormalizeText trims and collapses internal whitespace runs to one space.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
