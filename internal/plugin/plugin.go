package plugin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ilokitv/botSTORE/internal/inventory"
	"github.com/ilokitv/botSTORE/internal/models"
	"github.com/ilokitv/botSTORE/internal/session"
	"github.com/ilokitv/botSTORE/internal/sshx"
	"github.com/ilokitv/botSTORE/internal/wallet"
)

// Incoming представляет входящее текстовое сообщение чата
type Incoming struct {
	ChatID int64
	UserID int64
	Name   string
	Text   string
}

// Callback представляет нажатие инлайн-кнопки
type Callback struct {
	ID        string
	ChatID    int64
	UserID    int64
	MessageID int
	Data      string
}

// Button представляет инлайн-кнопку
type Button struct {
	Text string
	Data string
}

// Responder отправляет ответы в чат. Реализация живет на границе
// с Telegram, плагины транспорт не импортируют.
type Responder interface {
	Send(chatID int64, text string)
	SendButtons(chatID int64, text string, rows [][]Button)
	AnswerCallback(id string, text string)
	ClearButtons(chatID int64, messageID int)
}

// Plugin представляет одну операцию покупки, собранную фабрикой.
// Execute начинает сессию, Continue обрабатывает очередной ввод и
// возвращает false, если сессии для этого ключа нет.
type Plugin interface {
	Name() string
	Aliases() []string
	Title() string
	Execute(r Responder, in Incoming)
	Continue(r Responder, in Incoming) bool
}

// CallbackHandler реализуют плагины с кнопочным выбором.
// Возвращает false для чужих или устаревших callback-данных.
type CallbackHandler interface {
	OnCallback(r Responder, cb Callback) bool
}

// Approver реализуют плагины с подтверждением владельцем (/approve)
type Approver interface {
	Approve(r Responder, in Incoming, args []string)
}

// Deps содержит общие зависимости всех плагинов
type Deps struct {
	Wallet    *wallet.Store
	Inventory *inventory.Source
	Exec      sshx.Runner
	Sessions  *session.Registry
	IsOwner   func(userID int64) bool
}

// Шаги сессии
const (
	StepChooseProtocol = iota
	StepChooseHost
	StepChooseName
	StepChooseDays
	StepChooseAmount
)

// Границы длительности в днях
const (
	MinDays = 1
	MaxDays = 3650
)

var (
	cancelRe   = regexp.MustCompile(`(?i)^[./]?batal$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)
)

// isCancel распознает глобальный токен отмены ("batal", "/batal", ".batal")
func isCancel(text string) bool {
	return cancelRe.MatchString(strings.TrimSpace(text))
}

// validUsername проверяет имя аккаунта против разрешенного класса символов.
// Это обязательное условие перед подстановкой в shell-шаблон.
func validUsername(name string) bool {
	return usernameRe.MatchString(name)
}

func sessionKey(plugin string, in Incoming) session.Key {
	return session.Key{Plugin: plugin, ChatID: in.ChatID, UserID: in.UserID}
}

// tgID переводит идентификатор Telegram в ключ кошелька
func tgID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// IDR форматирует сумму с разделителями тысяч (формат id-ID).
// Общий помощник: им же пользуется обработчик бота для меню и баланса.
func IDR(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// vpsListText нумерует список серверов для текстового выбора (с единицы)
func vpsListText(list []models.VPS) string {
	lines := make([]string, 0, len(list))
	for i, v := range list {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, v.Label()))
	}
	return strings.Join(lines, "\n")
}

// expString переводит длительность в значение {EXP}: количество дней
// или календарную дату today+days, в зависимости от режима плагина
func expString(days int, mode string) string {
	if mode == "date" {
		return time.Now().AddDate(0, 0, days).Format("2006-01-02")
	}
	return strconv.Itoa(days)
}

// renderCommand подставляет {USER} и {EXP} в шаблон команды.
// Подстановка дословная, поэтому username обязан пройти validUsername.
func renderCommand(tpl, user, exp string) string {
	cmd := strings.ReplaceAll(tpl, "{USER}", user)
	return strings.ReplaceAll(cmd, "{EXP}", exp)
}

// parseDays разбирает длительность и проверяет диапазон [1, 3650]
func parseDays(text string) (int, bool) {
	days, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || days < MinDays || days > MaxDays {
		return 0, false
	}
	return days, true
}
