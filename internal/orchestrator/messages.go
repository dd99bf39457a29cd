package orchestrator

import (
	"fmt"
	"github.com/myrjola/portrait/internal/bank"
	"strings"
)

const (
	greetingText = "Здравствуйте! Я помогу составить ваш психологический портрет.\n\n" +
		"Вас ждут четыре коротких опросника: роли менеджера (PAEI), поведенческий стиль DISC, " +
		"гибкие навыки и личностные факторы HEXACO. Это займёт около 15 минут. " +
		"По итогам вы получите PDF-отчёт с графиками и интерпретацией.\n\n" +
		"Отвечайте честно: правильных и неправильных ответов нет. " +
		"Прервать тест можно в любой момент командой /cancel.\n\nНачнём?"
	confirmRetryText = "Пожалуйста, ответьте «да» или «нет»."
	askNameText      = "Как вас зовут? Имя будет указано на титульной странице отчёта."
	nameRetryText    = "Введите имя текстом, не длиннее 64 символов."
	choiceRetryText  = "Не понял ответ. Выберите один из вариантов: %s."
	likertRetryText  = "Не понял ответ. Введите число от 1 до %d."
	likertScaleText  = "Оцените от 1 (совсем не про меня) до 5 (полностью про меня)."
	buildingText     = "Спасибо! Все ответы получены. Готовлю отчёт, это может занять до минуты."
	busyText         = "Отчёт уже готовится, подождите немного."
	deliveredText    = "Ваш психологический портрет"
	cancelledText    = "Тест прерван, ответы удалены. Чтобы начать заново, отправьте /start."
	buildFailedText  = "К сожалению, не удалось сформировать отчёт. Ответы удалены, попробуйте пройти тест " +
		"ещё раз позже: /start."
	noSessionText    = "Чтобы пройти тест, отправьте /start."
	accessDeniedText = "Доступ к тесту по приглашению. Отправьте код доступа или /start <код>."
)

var (
	yesNoButtons  = []string{"Да", "Нет"}             //nolint:gochecknoglobals // keyboard
	likertButtons = []string{"1", "2", "3", "4", "5"} //nolint:gochecknoglobals // keyboard
)

func instrumentIntro(in *bank.Instrument, position, total int) string {
	return fmt.Sprintf("Опросник %d из %d: %s. Вопросов: %d.", position, total, in.Title, len(in.Items))
}

// itemPrompt renders an item with its progress line and, for alternative-choice items, the options.
func itemPrompt(in *bank.Instrument, index int) string {
	item := in.Items[index]
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %d/%d\n\n%s", in.Title, index+1, len(in.Items), item.Text)
	if in.Protocol == bank.AlternativeChoice {
		b.WriteString("\n")
		for _, letter := range offered(in, index) {
			fmt.Fprintf(&b, "\n%s. %s", letter, item.Options[letter])
		}
	} else {
		b.WriteString("\n\n")
		b.WriteString(likertScaleText)
	}
	return b.String()
}

func retryText(in *bank.Instrument, index int) string {
	if in.Protocol == bank.AlternativeChoice {
		return fmt.Sprintf(choiceRetryText, strings.Join(offered(in, index), ", "))
	}
	return fmt.Sprintf(likertRetryText, bank.LikertMax)
}
