// Package bank loads the four questionnaires from the data directory.
//
// A Bank is built once at startup and is read-only afterwards, so it can be shared by every session.
package bank

import "strconv"

type InstrumentID string

const (
	PAEI   InstrumentID = "paei"
	DISC   InstrumentID = "disc"
	HEXACO InstrumentID = "hexaco"
	SOFT   InstrumentID = "soft"
)

// DialogOrder is the order in which the respondent takes the instruments.
var DialogOrder = []InstrumentID{PAEI, DISC, SOFT, HEXACO} //nolint:gochecknoglobals // fixed battery

// ReportOrder is the order of the instrument sections in the portrait.
var ReportOrder = []InstrumentID{PAEI, SOFT, HEXACO, DISC} //nolint:gochecknoglobals // fixed battery

type Protocol int

const (
	// AlternativeChoice items are answered by picking one of the lettered options.
	AlternativeChoice Protocol = iota
	// Likert items are answered with an integer from 1 to LikertMax.
	Likert
)

// LikertMax is the top of the agreement scale used by DISC, HEXACO and SOFT.
const LikertMax = 5

type Category struct {
	Code string
	Name string
}

type Item struct {
	// Index is the 0-based position of the item within its instrument.
	Index int
	// Number is the item label as written in the bank file, e.g. "3" or "2.1".
	Number string
	Text   string
	// Options maps an answer letter to the option text. Only for alternative-choice items.
	Options map[string]string
	// OptionCategory maps an answer letter to the category it counts towards.
	OptionCategory map[string]string
	// Category the Likert item loads onto.
	Category string
	// Reverse marks reverse-coded Likert items.
	Reverse bool
}

type Instrument struct {
	ID         InstrumentID
	Title      string
	Protocol   Protocol
	Categories []Category
	Items      []Item
	// MaxRaw is the largest raw score a single category can reach.
	MaxRaw float64
}

// Choices lists the answer shortcuts offered to the respondent.
func (in *Instrument) Choices() []string {
	if in.Protocol == AlternativeChoice {
		codes := make([]string, len(in.Categories))
		for i, c := range in.Categories {
			codes[i] = c.Code
		}
		return codes
	}
	choices := make([]string, LikertMax)
	for i := range choices {
		choices[i] = strconv.Itoa(i + 1)
	}
	return choices
}

// CategoryName returns the display name of the category code, or the code itself when unknown.
func (in *Instrument) CategoryName(code string) string {
	for _, c := range in.Categories {
		if c.Code == code {
			return c.Name
		}
	}
	return code
}

// CategoryCodes returns the category codes in display order.
func (in *Instrument) CategoryCodes() []string {
	codes := make([]string, len(in.Categories))
	for i, c := range in.Categories {
		codes[i] = c.Code
	}
	return codes
}

// definition is the static part of an instrument, the rest comes from the bank file.
type definition struct {
	id         InstrumentID
	fileKey    string
	title      string
	protocol   Protocol
	categories []Category
}

var definitions = []definition{ //nolint:gochecknoglobals // fixed battery
	{
		id:       PAEI,
		fileKey:  "adizes",
		title:    "Роли менеджера по Адизесу (PAEI)",
		protocol: AlternativeChoice,
		categories: []Category{
			{Code: "P", Name: "Производитель"},
			{Code: "A", Name: "Администратор"},
			{Code: "E", Name: "Предприниматель"},
			{Code: "I", Name: "Интегратор"},
		},
	},
	{
		id:       DISC,
		fileKey:  "disc",
		title:    "Поведенческий стиль DISC",
		protocol: Likert,
		categories: []Category{
			{Code: "D", Name: "Доминирование"},
			{Code: "I", Name: "Влияние"},
			{Code: "S", Name: "Стабильность"},
			{Code: "C", Name: "Соответствие"},
		},
	},
	{
		id:       HEXACO,
		fileKey:  "hexaco",
		title:    "Личностные факторы HEXACO",
		protocol: Likert,
		categories: []Category{
			{Code: "H", Name: "Честность-скромность"},
			{Code: "E", Name: "Эмоциональность"},
			{Code: "X", Name: "Экстраверсия"},
			{Code: "A", Name: "Доброжелательность"},
			{Code: "C", Name: "Добросовестность"},
			{Code: "O", Name: "Открытость опыту"},
		},
	},
	{
		id:       SOFT,
		fileKey:  "soft",
		title:    "Гибкие навыки (Soft Skills)",
		protocol: Likert,
		categories: []Category{
			{Code: "communication", Name: "Коммуникация"},
			{Code: "teamwork", Name: "Командная работа"},
			{Code: "leadership", Name: "Лидерство"},
			{Code: "critical_thinking", Name: "Критическое мышление"},
			{Code: "time_management", Name: "Управление временем"},
			{Code: "stress_tolerance", Name: "Стрессоустойчивость"},
			{Code: "emotional_intelligence", Name: "Эмоциональный интеллект"},
			{Code: "adaptability", Name: "Адаптивность"},
			{Code: "problem_solving", Name: "Решение проблем"},
			{Code: "creativity", Name: "Креативность"},
		},
	},
}

// FileKey returns the file name prefix used for the instrument in the data directory.
func FileKey(id InstrumentID) string {
	for _, d := range definitions {
		if d.id == id {
			return d.fileKey
		}
	}
	return string(id)
}
