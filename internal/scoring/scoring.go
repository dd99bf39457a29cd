// Package scoring turns answer buffers into per-category scores and rescales them for presentation.
//
// Everything here is pure: the same instrument and answers always produce the same scores.
package scoring

import (
	"fmt"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"log/slog"
	"strconv"
)

// Answer is one confirmed answer. Choice is set for alternative-choice items, Value for Likert items.
type Answer struct {
	Choice string
	Value  int
}

func (a Answer) String() string {
	if a.Choice != "" {
		return a.Choice
	}
	return strconv.Itoa(a.Value)
}

// Score is a category → value vector of one instrument together with the method that produced it.
type Score struct {
	Instrument bank.InstrumentID
	Method     Method
	// Categories holds the category codes in display order.
	Categories []string
	Values     map[string]float64
	// Max is the native maximum of a category, used as divisor when rescaling.
	Max float64
}

// Value returns the score of the category, zero when absent.
func (s Score) Value(code string) float64 {
	return s.Values[code]
}

// Dominant returns the category with the highest value. Ties go to the category listed first.
func (s Score) Dominant() string {
	best := ""
	for _, code := range s.Categories {
		if best == "" || s.Values[code] > s.Values[best] {
			best = code
		}
	}
	return best
}

// ScorePAEI counts the letter selections per category. The counts sum up to the number of answers.
func ScorePAEI(letters []string, categories []string) (map[string]int, error) {
	counts := make(map[string]int, len(categories))
	for _, code := range categories {
		counts[code] = 0
	}
	for i, letter := range letters {
		if _, ok := counts[letter]; !ok {
			return nil, errors.Wrap(errors.ErrInvalidAnswer, "unknown letter",
				slog.Int("item", i), slog.String("letter", letter))
		}
		counts[letter]++
	}
	return counts, nil
}

// ScoreLikert averages the adjusted answers per category. Reverse-coded answers are inverted to max+1-answer.
func ScoreLikert(items []bank.Item, answers []int, maxValue int) (map[string]float64, error) {
	if len(answers) != len(items) {
		return nil, errors.Wrap(errors.ErrIncomplete, "likert answers",
			slog.Int("items", len(items)), slog.Int("answers", len(answers)))
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, item := range items {
		answer := answers[i]
		if answer < 1 || answer > maxValue {
			return nil, errors.Wrap(errors.ErrInvalidAnswer, "likert answer out of range",
				slog.Int("item", i), slog.Int("answer", answer))
		}
		sums[item.Category] += float64(adjust(item, answer, maxValue))
		counts[item.Category]++
	}
	means := make(map[string]float64, len(sums))
	for code, sum := range sums {
		means[code] = sum / float64(counts[code])
	}
	return means, nil
}

func adjust(item bank.Item, answer, maxValue int) int {
	if item.Reverse {
		return maxValue + 1 - answer
	}
	return answer
}

// Raw scores a complete answer buffer. An incomplete buffer is a programming error reported as
// [errors.ErrIncomplete]; the dialog never submits one.
func Raw(in *bank.Instrument, answers []Answer) (Score, error) {
	if len(answers) != len(in.Items) {
		return Score{}, errors.Wrap(errors.ErrIncomplete, "score",
			slog.String("instrument", string(in.ID)),
			slog.Int("items", len(in.Items)), slog.Int("answers", len(answers)))
	}
	score := Score{
		Instrument: in.ID,
		Method:     MethodRaw,
		Categories: in.CategoryCodes(),
		Values:     make(map[string]float64, len(in.Categories)),
		Max:        in.MaxRaw,
	}

	switch in.Protocol {
	case bank.AlternativeChoice:
		letters := make([]string, len(answers))
		for i, a := range answers {
			category, ok := in.Items[i].OptionCategory[a.Choice]
			if !ok {
				return Score{}, errors.Wrap(errors.ErrInvalidAnswer, "option not offered",
					slog.Int("item", i), slog.String("choice", a.Choice))
			}
			letters[i] = category
		}
		counts, err := ScorePAEI(letters, score.Categories)
		if err != nil {
			return Score{}, err
		}
		for code, n := range counts {
			score.Values[code] = float64(n)
		}
	case bank.Likert:
		values := make([]int, len(answers))
		for i, a := range answers {
			values[i] = a.Value
		}
		means, err := ScoreLikert(in.Items, values, bank.LikertMax)
		if err != nil {
			return Score{}, err
		}
		for code, v := range means {
			score.Values[code] = v
		}
	}
	return score, nil
}

// Contribution describes how a single answer counted towards the score, for the item appendix.
func Contribution(in *bank.Instrument, item bank.Item, answer Answer) string {
	if in.Protocol == bank.AlternativeChoice {
		code := item.OptionCategory[answer.Choice]
		return fmt.Sprintf("+1 → %s (%s)", code, in.CategoryName(code))
	}
	adjusted := adjust(item, answer.Value, bank.LikertMax)
	if item.Reverse {
		return fmt.Sprintf("%d (обратный пункт: %d) → %s", answer.Value, adjusted, in.CategoryName(item.Category))
	}
	return fmt.Sprintf("%d → %s", adjusted, in.CategoryName(item.Category))
}
