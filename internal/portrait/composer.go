// Package portrait composes the PDF report: a cover page, one section per instrument with chart, score
// table and interpretation, an optional item appendix and a closing credit.
package portrait

import (
	"context"
	"fmt"
	"github.com/go-pdf/fpdf"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/contexthelpers"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/fonts"
	"github.com/myrjola/portrait/internal/scoring"
	"image"
	_ "image/png" // chart images
	"log/slog"
	"os"
	"slices"
	"time"
)

// Section is the material of one instrument.
type Section struct {
	Instrument *bank.Instrument
	Score      scoring.Score
	// ChartPath is empty when the chart could not be rendered.
	ChartPath string
	Prose     string
	// Answers are listed in the appendix.
	Answers []scoring.Answer
}

type Document struct {
	Respondent string
	Date       time.Time
	Sections   []Section
	// Provider is credited at the end of the report.
	Provider string
}

type Options struct {
	Fonts    fonts.Set
	Appendix bool
}

type Composer struct {
	logger   *slog.Logger
	fonts    fonts.Set
	appendix bool
}

func NewComposer(logger *slog.Logger, opts Options) *Composer {
	return &Composer{
		logger:   logger,
		fonts:    opts.Fonts,
		appendix: opts.Appendix,
	}
}

const (
	unicodeFamily  = "body"
	fallbackFamily = "Helvetica"

	marginLeft   = 20.0
	marginTop    = 20.0
	marginRight  = 20.0
	marginBottom = 20.0
	lineHeight   = 6.0
)

// Compose writes the report to path and returns its page count. Sections are laid out in report order
// regardless of their order in doc. Errors wrap errors.ErrPDFBuildFailed.
func (c *Composer) Compose(ctx context.Context, doc Document, path string) (int, error) {
	w, err := c.newWriter()
	if err != nil {
		return 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "init pdf")
	}
	sections := ordered(doc.Sections)

	w.metadata(ctx, doc)
	w.cover(doc, sections)
	for _, s := range sections {
		if err = ctx.Err(); err != nil {
			return 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "compose cancelled")
		}
		w.section(s)
	}
	if c.appendix {
		w.appendix(sections)
	}
	w.credit(doc.Provider)
	w.decoratePages()

	if err = w.pdf.Error(); err != nil {
		return 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "compose pdf")
	}
	if err = ctx.Err(); err != nil {
		return 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "compose cancelled")
	}
	if err = w.pdf.OutputFileAndClose(path); err != nil {
		return 0, errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "write pdf", slog.String("path", path))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "pdf composed",
		slog.String("path", path), slog.Int("pages", w.pages))
	return w.pages, nil
}

func ordered(sections []Section) []Section {
	out := slices.Clone(sections)
	rank := func(id bank.InstrumentID) int { return slices.Index(bank.ReportOrder, id) }
	slices.SortStableFunc(out, func(a, b Section) int {
		return rank(a.Instrument.ID) - rank(b.Instrument.ID)
	})
	return out
}

// writer holds the state of one document being drawn.
type writer struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
	pages  int
}

func (c *Composer) newWriter() (*writer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)

	w := &writer{pdf: pdf, family: fallbackFamily, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if !c.fonts.Available() {
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, "no unicode font, using core font")
		return w, nil
	}
	regular, err := os.ReadFile(c.fonts.Regular)
	if err != nil {
		return nil, errors.Wrap(err, "read regular font")
	}
	bold, err := os.ReadFile(c.fonts.Bold)
	if err != nil {
		return nil, errors.Wrap(err, "read bold font")
	}
	pdf.AddUTF8FontFromBytes(unicodeFamily, "", regular)
	pdf.AddUTF8FontFromBytes(unicodeFamily, "B", bold)
	if err = pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "add unicode font", slog.Any("fonts", c.fonts))
	}
	w.family = unicodeFamily
	w.tr = func(s string) string { return s }
	return w, nil
}

func (w *writer) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *writer) contentWidth() float64 {
	pageWidth, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	return pageWidth - left - right
}

// ensureSpace starts a new page when less than h millimetres remain.
func (w *writer) ensureSpace(h float64) {
	_, pageHeight := w.pdf.GetPageSize()
	_, _, _, bottom := w.pdf.GetMargins()
	if w.pdf.GetY()+h > pageHeight-bottom {
		w.pdf.AddPage()
	}
}

func (w *writer) metadata(ctx context.Context, doc Document) {
	w.pdf.SetTitle("Психологический портрет: "+doc.Respondent, true)
	w.pdf.SetSubject("PAEI, DISC, HEXACO, Soft Skills", true)
	w.pdf.SetCreator("portrait", true)
	w.pdf.SetAuthor("portrait", true)
	w.pdf.SetCreationDate(doc.Date)
	if id := contexthelpers.BuildID(ctx); id != "" {
		w.pdf.SetKeywords("build "+id, true)
	}
}

func (w *writer) cover(doc Document, sections []Section) {
	w.pdf.AddPage()
	w.pdf.Ln(40) //nolint:mnd // cover spacing
	w.font("B", 24) //nolint:mnd // cover title
	w.pdf.MultiCell(0, 12, w.tr("Психологический портрет"), "", "C", false) //nolint:mnd // title line
	w.pdf.Ln(6)                                                              //nolint:mnd // spacing
	w.font("", 16)                                                           //nolint:mnd // name size
	w.pdf.MultiCell(0, 9, w.tr(doc.Respondent), "", "C", false)              //nolint:mnd // name line
	w.font("", 12)                                                           //nolint:mnd // date size
	w.pdf.MultiCell(0, 8, w.tr(doc.Date.Format("02.01.2006")), "", "C", false) //nolint:mnd // date line
	w.pdf.Ln(20)                                                             //nolint:mnd // spacing

	w.font("B", 13) //nolint:mnd // list title
	w.pdf.MultiCell(0, 8, w.tr("Пройденные опросники"), "", "L", false) //nolint:mnd // list title line
	w.pdf.Ln(2)                                                          //nolint:mnd // spacing
	for _, s := range sections {
		dominant := s.Score.Dominant()
		w.font("B", 11) //nolint:mnd // body size
		w.pdf.MultiCell(0, lineHeight, w.tr("• "+s.Instrument.Title), "", "L", false)
		w.font("", 11) //nolint:mnd // body size
		w.pdf.SetX(marginLeft + 5) //nolint:mnd // indent
		w.pdf.MultiCell(0, lineHeight, w.tr(fmt.Sprintf("Ведущая категория: %s (%s)",
			s.Instrument.CategoryName(dominant), ai.FormatValue(s.Score.Value(dominant)))), "", "L", false)
		w.pdf.Ln(1)
	}
}

func (w *writer) section(s Section) {
	w.pdf.AddPage()
	w.font("B", 18) //nolint:mnd // section title
	w.pdf.MultiCell(0, 10, w.tr(s.Instrument.Title), "", "L", false) //nolint:mnd // title line
	w.pdf.Ln(3)                                                       //nolint:mnd // spacing

	w.chart(s)
	w.scoreTable(s)
	w.pdf.Ln(4) //nolint:mnd // spacing
	w.prose(s.Prose)
}

func (w *writer) chart(s Section) {
	if s.ChartPath == "" || !readablePNG(s.ChartPath) {
		w.font("", 11) //nolint:mnd // body size
		w.pdf.MultiCell(0, lineHeight,
			w.tr(fmt.Sprintf("График для опросника «%s» недоступен.", s.Instrument.Title)), "", "L", false)
		w.pdf.Ln(3) //nolint:mnd // spacing
		return
	}
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false, AllowNegativePosition: false}
	info := w.pdf.RegisterImageOptions(s.ChartPath, opts)
	if info == nil || info.Width() == 0 {
		return
	}
	width := w.contentWidth()
	if info.Height() >= info.Width() {
		width *= 0.75 //nolint:mnd // square radar charts
	}
	height := width * info.Height() / info.Width()
	w.ensureSpace(height)
	x := marginLeft + (w.contentWidth()-width)/2 //nolint:mnd // centred
	w.pdf.ImageOptions(s.ChartPath, x, w.pdf.GetY(), width, height, true, opts, 0, "")
	w.pdf.Ln(3) //nolint:mnd // spacing
}

func readablePNG(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	return err == nil && format == "png"
}

func (w *writer) scoreTable(s Section) {
	const (
		rowHeight = 7.0
		valueCol  = 30.0
	)
	nameCol := w.contentWidth() - valueCol
	w.ensureSpace(rowHeight * float64(len(s.Score.Categories)+2)) //nolint:mnd // header and legend

	w.font("B", 11) //nolint:mnd // table size
	w.pdf.SetFillColor(235, 238, 243)                                       //nolint:mnd // header fill
	w.pdf.CellFormat(nameCol, rowHeight, w.tr("Категория"), "1", 0, "L", true, 0, "")
	w.pdf.CellFormat(valueCol, rowHeight, w.tr("Балл"), "1", 1, "C", true, 0, "")
	w.font("", 11) //nolint:mnd // table size
	dominant := s.Score.Dominant()
	for _, code := range s.Score.Categories {
		style := ""
		if code == dominant {
			style = "B"
		}
		w.font(style, 11) //nolint:mnd // table size
		w.pdf.CellFormat(nameCol, rowHeight, w.tr(s.Instrument.CategoryName(code)), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(valueCol, rowHeight, ai.FormatValue(s.Score.Value(code)), "1", 1, "C", false, 0, "")
	}
	w.font("", 9) //nolint:mnd // legend size
	w.pdf.SetTextColor(90, 90, 90) //nolint:mnd // grey legend
	w.pdf.MultiCell(0, 5, w.tr(s.Score.Method.Label()), "", "L", false) //nolint:mnd // legend line
	w.pdf.SetTextColor(0, 0, 0)
}

func (w *writer) prose(text string) {
	for _, block := range ParseMarkup(text) {
		switch block.Kind {
		case Heading1:
			w.heading(block, 16) //nolint:mnd // heading size
		case Heading2:
			w.heading(block, 14) //nolint:mnd // heading size
		case Heading3:
			w.heading(block, 12) //nolint:mnd // heading size
		case Rule:
			w.pdf.Ln(2) //nolint:mnd // spacing
			y := w.pdf.GetY()
			w.pdf.SetDrawColor(180, 180, 180) //nolint:mnd // light rule
			w.pdf.Line(marginLeft, y, marginLeft+w.contentWidth(), y)
			w.pdf.SetDrawColor(0, 0, 0)
			w.pdf.Ln(3) //nolint:mnd // spacing
		case Bullet:
			w.font("", 11) //nolint:mnd // body size
			w.pdf.SetX(marginLeft + 2) //nolint:mnd // bullet indent
			w.pdf.Write(lineHeight, w.tr("•"))
			w.pdf.SetLeftMargin(marginLeft + 7) //nolint:mnd // hanging indent
			w.pdf.SetX(marginLeft + 7)          //nolint:mnd // hanging indent
			w.spans(block.Spans, 11)            //nolint:mnd // body size
			w.pdf.SetLeftMargin(marginLeft)
			w.pdf.Ln(lineHeight + 1)
		case Paragraph:
			w.spans(block.Spans, 11) //nolint:mnd // body size
			w.pdf.Ln(lineHeight + 2) //nolint:mnd // paragraph spacing
		}
	}
}

func (w *writer) heading(block Block, size float64) {
	w.ensureSpace(3 * lineHeight) //nolint:mnd // keep with following text
	w.pdf.Ln(2)                   //nolint:mnd // spacing
	w.font("B", size)
	w.pdf.MultiCell(0, size*0.5, w.tr(block.Text()), "", "L", false) //nolint:mnd // line height from size
	w.pdf.Ln(1)
}

func (w *writer) spans(spans []Span, size float64) {
	for _, s := range spans {
		style := ""
		if s.Bold {
			style = "B"
		}
		w.font(style, size)
		w.pdf.Write(lineHeight, w.tr(s.Text))
	}
}

func (w *writer) appendix(sections []Section) {
	w.pdf.AddPage()
	w.font("B", 18) //nolint:mnd // section title
	w.pdf.MultiCell(0, 10, w.tr("Приложение: ответы по пунктам"), "", "L", false) //nolint:mnd // title line
	for _, s := range sections {
		w.pdf.Ln(4) //nolint:mnd // spacing
		w.ensureSpace(4 * lineHeight) //nolint:mnd // keep title with first item
		w.font("B", 13) //nolint:mnd // instrument title
		w.pdf.MultiCell(0, 8, w.tr(s.Instrument.Title), "", "L", false) //nolint:mnd // title line
		for i, item := range s.Instrument.Items {
			if i >= len(s.Answers) {
				break
			}
			answer := s.Answers[i]
			w.font("", 10) //nolint:mnd // appendix size
			w.pdf.MultiCell(0, 5, w.tr(item.Number+". "+item.Text), "", "L", false) //nolint:mnd // item line
			w.font("B", 10) //nolint:mnd // appendix size
			w.pdf.SetX(marginLeft + 5) //nolint:mnd // indent
			w.pdf.MultiCell(0, 5, w.tr(fmt.Sprintf("Ответ: %s; учтено: %s", answer,
				scoring.Contribution(s.Instrument, item, answer))), "", "L", false) //nolint:mnd // answer line
			w.pdf.Ln(1)
		}
	}
}

func (w *writer) credit(provider string) {
	w.pdf.Ln(8) //nolint:mnd // spacing
	w.ensureSpace(4 * lineHeight) //nolint:mnd // credit block
	w.pdf.SetDrawColor(180, 180, 180) //nolint:mnd // light rule
	y := w.pdf.GetY()
	w.pdf.Line(marginLeft, y, marginLeft+w.contentWidth(), y)
	w.pdf.SetDrawColor(0, 0, 0)
	w.pdf.Ln(3) //nolint:mnd // spacing
	w.font("", 9) //nolint:mnd // credit size
	w.pdf.SetTextColor(90, 90, 90) //nolint:mnd // grey credit
	text := "Интерпретации подготовлены автоматически по шаблонным описаниям шкал."
	if provider != "" {
		text = "Интерпретации подготовлены с помощью языковой модели " + provider +
			" и носят рекомендательный характер."
	}
	w.pdf.MultiCell(0, 5, w.tr(text), "", "L", false) //nolint:mnd // credit line
	w.pdf.SetTextColor(0, 0, 0)
}

// decoratePages draws "Страница X из N" on every page once all content exists and the total is known.
func (w *writer) decoratePages() {
	total := w.pdf.PageCount()
	w.pages = total
	pageWidth, _ := w.pdf.GetPageSize()
	w.pdf.SetAutoPageBreak(false, 0)
	for page := 1; page <= total; page++ {
		w.pdf.SetPage(page)
		// SetFont skips unchanged fonts, but every revisited page needs its own font operator.
		w.font("B", 9) //nolint:mnd // page number size
		w.font("", 9)  //nolint:mnd // page number size
		w.pdf.SetTextColor(120, 120, 120) //nolint:mnd // grey page number
		w.pdf.SetXY(pageWidth-marginRight-60, 8) //nolint:mnd // top right corner
		w.pdf.CellFormat(60, 6, w.tr(PageLabel(page, total)), "", 0, "R", false, 0, "") //nolint:mnd // label cell
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.SetPage(total)
}

// PageLabel is the page number text.
func PageLabel(page, total int) string {
	return fmt.Sprintf("Страница %d из %d", page, total)
}
