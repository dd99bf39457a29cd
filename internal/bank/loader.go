package bank

import (
	"bufio"
	"bytes"
	"fmt"
	"github.com/myrjola/portrait/internal/errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberedItemRe = regexp.MustCompile(`^(\d+)[.)]\s*(.*)$`)
	discItemRe     = regexp.MustCompile(`^(\d+)\.(\d+)[.)]?\s+(.+)$`)
	optionRe       = regexp.MustCompile(`^([A-Za-z])[.)]\s*(.+)$`)
	reverseRe      = regexp.MustCompile(`\s*\([Rr]\)\s*$`)
	startsDigitRe  = regexp.MustCompile(`^\d`)
)

type Bank struct {
	instruments map[InstrumentID]*Instrument
}

// Load parses the four question files under dir/prompts. It fails with [errors.ErrBankCorrupt] if any file is
// missing or malformed.
func Load(dir string) (*Bank, error) {
	b := Bank{instruments: make(map[InstrumentID]*Instrument, len(definitions))}
	for _, def := range definitions {
		path := QuestionsPath(dir, def.id)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.Join(errors.ErrBankCorrupt, err), "read questions",
				slog.String("path", path))
		}
		in, err := parse(def, data)
		if err != nil {
			return nil, errors.Wrap(err, "parse questions", slog.String("path", path))
		}
		b.instruments[def.id] = in
	}
	return &b, nil
}

// QuestionsPath returns the location of the question file of the instrument.
func QuestionsPath(dir string, id InstrumentID) string {
	return filepath.Join(dir, "prompts", FileKey(id)+"_user.txt")
}

// Instrument returns the instrument or nil when the bank doesn't know the id.
func (b *Bank) Instrument(id InstrumentID) *Instrument {
	return b.instruments[id]
}

// Instruments returns the instruments in dialog order.
func (b *Bank) Instruments() []*Instrument {
	out := make([]*Instrument, 0, len(DialogOrder))
	for _, id := range DialogOrder {
		out = append(out, b.instruments[id])
	}
	return out
}

func parse(def definition, data []byte) (*Instrument, error) {
	in := Instrument{
		ID:         def.id,
		Title:      def.title,
		Protocol:   def.protocol,
		Categories: def.categories,
		Items:      nil,
		MaxRaw:     LikertMax,
	}
	var err error
	switch def.id {
	case PAEI:
		in.Items, err = parseAlternativeChoice(data, def.categories)
		// Every item adds one point to exactly one category.
		in.MaxRaw = float64(len(in.Items))
	case DISC:
		in.Items, err = parseBlocks(data, def.categories)
	case HEXACO, SOFT:
		in.Items, err = parseCyclic(data, def.categories)
	}
	if err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, errors.Wrap(errors.ErrBankCorrupt, "no items")
	}
	return &in, nil
}

func corrupt(lineNo int, msg string) error {
	return errors.Wrap(errors.ErrBankCorrupt, msg, slog.Int("line", lineNo))
}

func lines(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	for scanner.Scan() {
		out = append(out, strings.TrimSpace(scanner.Text()))
	}
	return out
}

// parseAlternativeChoice reads items numbered "N." followed by four option lines tagged with the category letter.
func parseAlternativeChoice(data []byte, categories []Category) ([]Item, error) {
	var (
		items   []Item
		current *Item
		last    string
	)
	finish := func(lineNo int) error {
		if current == nil {
			return nil
		}
		if len(current.Options) != len(categories) {
			return corrupt(lineNo, fmt.Sprintf("item %s has %d tagged options, want %d",
				current.Number, len(current.Options), len(categories)))
		}
		items = append(items, *current)
		current = nil
		return nil
	}

	for i, line := range lines(data) {
		lineNo := i + 1
		if line == "" {
			continue
		}
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			if startsDigitRe.MatchString(m[2]) {
				return nil, corrupt(lineNo, "unparseable item number")
			}
			if err := finish(lineNo); err != nil {
				return nil, err
			}
			current = &Item{
				Index:          len(items),
				Number:         m[1],
				Text:           m[2],
				Options:        make(map[string]string, len(categories)),
				OptionCategory: make(map[string]string, len(categories)),
				Category:       "",
				Reverse:        false,
			}
			last = ""
			continue
		}
		if startsDigitRe.MatchString(line) {
			return nil, corrupt(lineNo, "unparseable item number")
		}
		if current == nil {
			// Instructions before the first item.
			continue
		}
		if m := optionRe.FindStringSubmatch(line); m != nil {
			letter := strings.ToUpper(m[1])
			if !hasCategory(categories, letter) {
				return nil, corrupt(lineNo, fmt.Sprintf("option tagged with unknown category %q", letter))
			}
			if _, dup := current.Options[letter]; dup {
				return nil, corrupt(lineNo, fmt.Sprintf("option %q repeated", letter))
			}
			current.Options[letter] = m[2]
			current.OptionCategory[letter] = letter
			last = letter
			continue
		}
		// Continuation of the previous line.
		if last == "" {
			current.Text = strings.TrimSpace(current.Text + " " + line)
		} else {
			current.Options[last] += " " + line
		}
	}
	if err := finish(len(lines(data))); err != nil {
		return nil, err
	}
	return items, nil
}

// parseBlocks reads items numbered "N.M" where N selects the category.
func parseBlocks(data []byte, categories []Category) ([]Item, error) {
	var items []Item
	seen := make(map[string]bool, len(categories))
	for i, line := range lines(data) {
		lineNo := i + 1
		if line == "" {
			continue
		}
		m := discItemRe.FindStringSubmatch(line)
		if m == nil {
			if startsDigitRe.MatchString(line) {
				return nil, corrupt(lineNo, "unparseable item prefix")
			}
			// Block headings.
			continue
		}
		block, err := strconv.Atoi(m[1])
		if err != nil || block < 1 || block > len(categories) {
			return nil, corrupt(lineNo, fmt.Sprintf("block %s out of range", m[1]))
		}
		text, reverse := stripReverse(m[3])
		code := categories[block-1].Code
		seen[code] = true
		items = append(items, Item{
			Index:          len(items),
			Number:         m[1] + "." + m[2],
			Text:           text,
			Options:        nil,
			OptionCategory: nil,
			Category:       code,
			Reverse:        reverse,
		})
	}
	for _, c := range categories {
		if !seen[c.Code] {
			return nil, errors.Wrap(errors.ErrBankCorrupt, "category without items", slog.String("category", c.Code))
		}
	}
	return items, nil
}

// parseCyclic reads items numbered "N." where the i-th item loads on the (i mod k)-th category.
func parseCyclic(data []byte, categories []Category) ([]Item, error) {
	var items []Item
	for i, line := range lines(data) {
		lineNo := i + 1
		if line == "" {
			continue
		}
		m := numberedItemRe.FindStringSubmatch(line)
		if m == nil || m[2] == "" || startsDigitRe.MatchString(m[2]) {
			if startsDigitRe.MatchString(line) {
				return nil, corrupt(lineNo, "unparseable item prefix")
			}
			continue
		}
		text, reverse := stripReverse(m[2])
		items = append(items, Item{
			Index:          len(items),
			Number:         m[1],
			Text:           text,
			Options:        nil,
			OptionCategory: nil,
			Category:       categories[len(items)%len(categories)].Code,
			Reverse:        reverse,
		})
	}
	if len(items) < len(categories) {
		return nil, errors.Wrap(errors.ErrBankCorrupt, "fewer items than categories",
			slog.Int("items", len(items)), slog.Int("categories", len(categories)))
	}
	return items, nil
}

func stripReverse(text string) (string, bool) {
	if loc := reverseRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]]), true
	}
	return text, false
}

func hasCategory(categories []Category, code string) bool {
	for _, c := range categories {
		if c.Code == code {
			return true
		}
	}
	return false
}
