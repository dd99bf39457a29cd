package orchestrator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxNameRunes = 64

// Cyrillic letters that look like the Latin answer letters on a Russian keyboard.
var homoglyphs = map[rune]rune{ //nolint:gochecknoglobals // lookup table
	'Р': 'P',
	'А': 'A',
	'Е': 'E',
	'І': 'I',
}

// leading splits text into its first rune and reports whether the rest is a separator followed by free
// text. "3", "3.", "3) usually calm" and "A - plan ahead" all qualify, "35", "3,5" and "Admin" do not.
func leading(text string) (rune, bool) {
	text = strings.TrimSpace(text)
	first, size := utf8.DecodeRuneInString(text)
	if first == utf8.RuneError {
		return 0, false
	}
	rest := text[size:]
	if rest == "" {
		return first, true
	}
	next, nextSize := utf8.DecodeRuneInString(rest)
	if unicode.IsLetter(next) || unicode.IsDigit(next) {
		return 0, false
	}
	if next == '.' || next == ',' {
		if after, _ := utf8.DecodeRuneInString(rest[nextSize:]); unicode.IsDigit(after) {
			return 0, false
		}
	}
	return first, true
}

// ParseChoice accepts one of the offered letters, case-insensitively, optionally followed by text.
func ParseChoice(text string, choices []string) (string, bool) {
	r, ok := leading(text)
	if !ok {
		return "", false
	}
	r = unicode.ToUpper(r)
	if latin, found := homoglyphs[r]; found {
		r = latin
	}
	letter := string(r)
	for _, c := range choices {
		if c == letter {
			return letter, true
		}
	}
	return "", false
}

// ParseLikert accepts an integer from 1 to maxValue, optionally followed by text.
func ParseLikert(text string, maxValue int) (int, bool) {
	r, ok := leading(text)
	if !ok || r < '1' || r > '9' {
		return 0, false
	}
	v := int(r - '0')
	if v > maxValue {
		return 0, false
	}
	return v, true
}

type confirmation int

const (
	unclear confirmation = iota
	confirmed
	declined
)

func parseConfirmation(text string) confirmation {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!")) {
	case "да", "yes", "y", "д", "ок", "ok", "начать", "поехали":
		return confirmed
	case "нет", "no", "n", "н":
		return declined
	}
	return unclear
}

// ValidName trims the respondent's name and checks that it can go on a cover page.
func ValidName(text string) (string, bool) {
	name := strings.Join(strings.Fields(text), " ")
	if name == "" || strings.HasPrefix(name, "/") || utf8.RuneCountInString(name) > maxNameRunes {
		return "", false
	}
	if !strings.ContainsFunc(name, unicode.IsLetter) {
		return "", false
	}
	return name, true
}

func isCancel(command, text string) bool {
	if command == "cancel" || command == "stop" {
		return true
	}
	switch strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!")) {
	case "отмена", "cancel", "стоп":
		return true
	}
	return false
}
