package handlers

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ilokitv/botSTORE/internal/plugin"
)

// tgResponder отправляет ответы плагинов через Telegram API
type tgResponder struct {
	bot *tgbotapi.BotAPI
}

// NewResponder создает Responder поверх Telegram API
func NewResponder(bot *tgbotapi.BotAPI) plugin.Responder {
	return &tgResponder{bot: bot}
}

func (r *tgResponder) Send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := r.bot.Send(msg); err != nil {
		log.Printf("Ошибка отправки сообщения в чат %d: %v", chatID, err)
	}
}

func (r *tgResponder) SendButtons(chatID int64, text string, rows [][]plugin.Button) {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, btns)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	if _, err := r.bot.Send(msg); err != nil {
		log.Printf("Ошибка отправки кнопок в чат %d: %v", chatID, err)
	}
}

func (r *tgResponder) AnswerCallback(id, text string) {
	callback := tgbotapi.NewCallback(id, text)
	if _, err := r.bot.Request(callback); err != nil {
		log.Printf("Ошибка ответа на callback %s: %v", id, err)
	}
}

func (r *tgResponder) ClearButtons(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := r.bot.Request(edit); err != nil {
		log.Printf("Ошибка очистки кнопок в чате %d: %v", chatID, err)
	}
}
