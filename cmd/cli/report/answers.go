package report

import (
	"encoding/json"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
)

// answersFile is the input of render:
//
//	{"name": "Анна", "answers": {"paei": ["P", "A", ...], "disc": [4, 2, ...], ...}}
//
// Alternative-choice instruments take letters, Likert instruments take integers.
type answersFile struct {
	Name    string                                  `json:"name"`
	Answers map[bank.InstrumentID]json.RawMessage `json:"answers"`
}

func readAnswers(path string, b *bank.Bank) (string, map[bank.InstrumentID][]scoring.Answer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrap(err, "read answers", slog.String("path", path))
	}
	var f answersFile
	if err = json.Unmarshal(data, &f); err != nil {
		return "", nil, errors.Wrap(err, "decode answers", slog.String("path", path))
	}
	out := make(map[bank.InstrumentID][]scoring.Answer, len(bank.DialogOrder))
	for _, in := range b.Instruments() {
		raw, ok := f.Answers[in.ID]
		if !ok {
			return "", nil, errors.Wrap(errors.ErrIncomplete, "no answers", slog.String("instrument", string(in.ID)))
		}
		if out[in.ID], err = decodeAnswers(in, raw); err != nil {
			return "", nil, err
		}
	}
	return strings.TrimSpace(f.Name), out, nil
}

func decodeAnswers(in *bank.Instrument, raw json.RawMessage) ([]scoring.Answer, error) {
	attr := slog.String("instrument", string(in.ID))
	if in.Protocol == bank.AlternativeChoice {
		var letters []string
		if err := json.Unmarshal(raw, &letters); err != nil {
			return nil, errors.Wrap(errors.Join(errors.ErrInvalidAnswer, err), "decode letters", attr)
		}
		answers := make([]scoring.Answer, len(letters))
		for i, l := range letters {
			answers[i] = scoring.Answer{Choice: strings.ToUpper(strings.TrimSpace(l))}
		}
		return answers, nil
	}
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(errors.Join(errors.ErrInvalidAnswer, err), "decode values", attr)
	}
	answers := make([]scoring.Answer, len(values))
	for i, v := range values {
		answers[i] = scoring.Answer{Value: v}
	}
	return answers, nil
}

// randomAnswers fills every item with a valid answer drawn from a seeded source.
func randomAnswers(seed uint64, b *bank.Bank) map[bank.InstrumentID][]scoring.Answer {
	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // sample data
	out := make(map[bank.InstrumentID][]scoring.Answer, len(bank.DialogOrder))
	for _, in := range b.Instruments() {
		answers := make([]scoring.Answer, len(in.Items))
		for i, item := range in.Items {
			if in.Protocol == bank.AlternativeChoice {
				letters := make([]string, 0, len(item.Options))
				for _, code := range in.CategoryCodes() {
					if _, ok := item.Options[code]; ok {
						letters = append(letters, code)
					}
				}
				answers[i] = scoring.Answer{Choice: letters[rng.IntN(len(letters))]}
				continue
			}
			answers[i] = scoring.Answer{Value: 1 + rng.IntN(bank.LikertMax)}
		}
		out[in.ID] = answers
	}
	return out
}
