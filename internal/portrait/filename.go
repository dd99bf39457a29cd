package portrait

import (
	"strings"
	"time"
	"unicode"
)

const (
	timestampLayout = "2006-01-02_15-04-05"
	maxNameRunes    = 40
	anonymousName   = "respondent"
)

// SanitizeName reduces a respondent name to letters, digits, hyphens and underscores so that it is safe
// in a file name on every platform.
func SanitizeName(name string) string {
	var (
		sb         strings.Builder
		n          int
		underscore bool
	)
	for _, r := range strings.TrimSpace(name) {
		if n >= maxNameRunes {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			sb.WriteRune(r)
			underscore = false
		case !underscore && sb.Len() > 0:
			sb.WriteRune('_')
			underscore = true
		default:
			continue
		}
		n++
	}
	s := strings.Trim(sb.String(), "_")
	if s == "" {
		return anonymousName
	}
	return s
}

// FileName is the name of the report delivered over chat.
func FileName(at time.Time, name string) string {
	return at.Format(timestampLayout) + "_" + SanitizeName(name) + ".pdf"
}

// ArchiveName is the name of the archived copy. The respondent id keeps namesakes apart.
func ArchiveName(at time.Time, name, respondentID string) string {
	return at.Format(timestampLayout) + "_" + SanitizeName(name) + "_" + SanitizeName(respondentID) + ".pdf"
}
