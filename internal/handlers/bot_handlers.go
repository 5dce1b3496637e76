package handlers

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ilokitv/botSTORE/internal/config"
	"github.com/ilokitv/botSTORE/internal/plugin"
	"github.com/ilokitv/botSTORE/internal/scheduler"
	"github.com/ilokitv/botSTORE/internal/session"
	"github.com/ilokitv/botSTORE/internal/wallet"
)

// BotHandler обрабатывает взаимодействие с Telegram ботом:
// разбирает команды, раздает события плагинам и рисует меню
type BotHandler struct {
	bot       *tgbotapi.BotAPI
	store     *wallet.Store
	cfg       *config.Config
	checker   *scheduler.VPSChecker
	sessions  *session.Registry
	plugins   map[string]plugin.Plugin
	aliases   map[string]string
	order     []string // стабильный порядок обхода для Continue
	resp      plugin.Responder
	startedAt time.Time
}

// NewBotHandler создает нового обработчика бота
func NewBotHandler(bot *tgbotapi.BotAPI, store *wallet.Store, cfg *config.Config,
	checker *scheduler.VPSChecker, sessions *session.Registry, plugins []plugin.Plugin) *BotHandler {

	h := &BotHandler{
		bot:       bot,
		store:     store,
		cfg:       cfg,
		checker:   checker,
		sessions:  sessions,
		plugins:   make(map[string]plugin.Plugin),
		aliases:   make(map[string]string),
		resp:      &tgResponder{bot: bot},
		startedAt: time.Now(),
	}

	for _, p := range plugins {
		name := strings.ToLower(p.Name())
		h.plugins[name] = p
		h.order = append(h.order, name)
		for _, a := range p.Aliases() {
			h.aliases[strings.ToLower(a)] = name
		}
	}
	return h
}

// IsOwner проверяет, является ли пользователь владельцем бота
func (h *BotHandler) IsOwner(userID int64) bool {
	return h.cfg.IsOwner(userID)
}

// HandleUpdate обрабатывает обновление от Telegram
func (h *BotHandler) HandleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		h.handleMessage(update.Message)
		return
	}
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(update.CallbackQuery)
		return
	}
}

// fullName собирает отображаемое имя пользователя
func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return u.UserName
	}
	return "User"
}

// parseCommand разбирает команду с префиксом "/" или "."
func parseCommand(text string) (string, []string, bool) {
	t := strings.TrimSpace(text)
	if t == "" || !(strings.HasPrefix(t, "/") || strings.HasPrefix(t, ".")) {
		return "", nil, false
	}
	fields := strings.Fields(t[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	return name, fields[1:], true
}

// handleMessage обрабатывает сообщения от пользователя
func (h *BotHandler) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	in := plugin.Incoming{
		ChatID: message.Chat.ID,
		UserID: message.From.ID,
		Name:   fullName(message.From),
		Text:   message.Text,
	}

	// Автоматическая регистрация пользователя при первом контакте
	if _, err := h.store.EnsureUser(fmt.Sprintf("%d", in.UserID), in.Name); err != nil {
		log.Printf("Ошибка регистрации пользователя %d: %v", in.UserID, err)
	}

	if name, args, ok := parseCommand(message.Text); ok {
		// Неизвестная команда молча игнорируется и не попадает
		// в живую сессию как ввод шага
		h.handleCommand(in, name, args)
		return
	}

	// Текст без команды достается плагину с живой сессией
	for _, name := range h.order {
		if h.plugins[name].Continue(h.resp, in) {
			return
		}
	}
}

// handleCommand обрабатывает команды бота.
// Возвращает false, если команда никому не известна; такие команды
// отбрасываются вызывающей стороной.
func (h *BotHandler) handleCommand(in plugin.Incoming, name string, args []string) bool {
	switch name {
	case "start":
		h.resp.Send(in.ChatID, fmt.Sprintf(
			"Halo %s! 👋\nKetik /menu atau .menu untuk fitur.\nKetik /batal untuk membatalkan sesi aktif.", in.Name))
		return true

	case "help":
		h.resp.Send(in.ChatID, "• /menu : menu bot\n• /saldo : cek saldo & statistik\n• /history : riwayat transaksi\n• /batal : batal semua sesi aktif")
		return true

	case "menu":
		h.sendMenu(in)
		return true

	case "batal":
		if h.sessions.CancelAll(in.ChatID, in.UserID) > 0 {
			h.resp.Send(in.ChatID, "✅ Semua sesi berhasil dibatalkan.")
		} else {
			h.resp.Send(in.ChatID, "❌ Tidak ada sesi aktif.")
		}
		return true

	case "saldo", "ceksaldo":
		h.sendBalance(in)
		return true

	case "history", "riwayat":
		h.sendHistory(in)
		return true

	case "stats":
		if !h.IsOwner(in.UserID) {
			h.resp.Send(in.ChatID, "❌ Command ini hanya untuk owner.")
			return true
		}
		h.sendGlobalStats(in)
		return true

	case "approve":
		if !h.IsOwner(in.UserID) {
			h.resp.Send(in.ChatID, "❌ Command ini hanya untuk owner.")
			return true
		}
		for _, pname := range h.order {
			if ap, ok := h.plugins[pname].(plugin.Approver); ok {
				ap.Approve(h.resp, in, args)
				return true
			}
		}
		return true
	}

	pname, ok := h.aliases[name]
	if !ok {
		pname = name
	}
	if p, ok := h.plugins[pname]; ok {
		p.Execute(h.resp, in)
		return true
	}
	return false
}

// handleCallbackQuery обрабатывает нажатия на инлайн-кнопки
func (h *BotHandler) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.From == nil {
		return
	}

	cb := plugin.Callback{
		ID:        query.ID,
		ChatID:    query.Message.Chat.ID,
		UserID:    query.From.ID,
		MessageID: query.Message.MessageID,
		Data:      query.Data,
	}

	log.Printf("Получен callback: data=%s, от пользователя ID=%d", cb.Data, cb.UserID)

	// Кнопки меню запускают плагин как команду
	if strings.HasPrefix(cb.Data, "menu:run:") {
		h.resp.AnswerCallback(cb.ID, "")
		name := strings.TrimPrefix(cb.Data, "menu:run:")
		in := plugin.Incoming{ChatID: cb.ChatID, UserID: cb.UserID, Name: fullName(query.From)}
		if p, ok := h.plugins[name]; ok {
			p.Execute(h.resp, in)
		}
		return
	}

	for _, name := range h.order {
		if ch, ok := h.plugins[name].(plugin.CallbackHandler); ok {
			if ch.OnCallback(h.resp, cb) {
				return
			}
		}
	}
	h.resp.AnswerCallback(cb.ID, "")
}

// sendMenu отправляет шапку магазина и кнопки сервисов
func (h *BotHandler) sendMenu(in plugin.Incoming) {
	balance, err := h.store.Balance(fmt.Sprintf("%d", in.UserID))
	if err != nil {
		log.Printf("Ошибка чтения баланса %d: %v", in.UserID, err)
	}
	total, err := h.store.TotalUsers()
	if err != nil {
		log.Printf("Ошибка подсчета пользователей: %v", err)
	}

	statuses := h.checker.Statuses()
	statusLines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		mark := "🔴"
		if s.Online {
			mark = "🟢"
		}
		statusLines = append(statusLines, mark+" "+s.Label)
	}
	statusText := "_Tidak ada VPS terdaftar_"
	if len(statusLines) > 0 {
		statusText = strings.Join(statusLines, "\n")
	}

	uptime := time.Since(h.startedAt).Round(time.Minute)
	now := wallet.NowWIB()

	header := strings.Join([]string{
		"🎉 *Selamat Datang di JULAK VPN* 🎉",
		"━━━━━━━━━━━━━━━━━━━━━━━",
		fmt.Sprintf("👤 Pengguna : %s", in.Name),
		fmt.Sprintf("💰 Saldo : Rp%s", plugin.IDR(balance)),
		fmt.Sprintf("🕒 Waktu : %s WIB", now.Format("15:04")),
		fmt.Sprintf("♻️ Uptime Bot : %s", uptime),
		fmt.Sprintf("👥 Total User : %d", total),
		"━━━━━━━━━━━━━━━━━━━━━━━",
		"*Status Server:*",
		statusText,
	}, "\n")

	rows := [][]plugin.Button{
		{{Text: "➕ Add SSH", Data: "menu:run:addssh"}, {Text: "🆓 Trial SSH", Data: "menu:run:trialssh"}},
		{{Text: "➕ Add VMess", Data: "menu:run:addvmess"}, {Text: "🆓 Trial VMess", Data: "menu:run:trialvmess"}},
		{{Text: "➕ Add VLess", Data: "menu:run:addvless"}, {Text: "🆓 Trial VLess", Data: "menu:run:trialvless"}},
		{{Text: "➕ Add Trojan", Data: "menu:run:addtrojan"}, {Text: "🆓 Trial Trojan", Data: "menu:run:trialtrojan"}},
		{{Text: "♻️ Renew Akun", Data: "menu:run:renew"}},
		{{Text: "💰 Topup Manual", Data: "menu:run:topupmanual"}},
	}

	h.resp.SendButtons(in.ChatID, header, rows)
}

// sendBalance показывает баланс и статистику покупок пользователя
func (h *BotHandler) sendBalance(in plugin.Incoming) {
	id := fmt.Sprintf("%d", in.UserID)
	balance, err := h.store.Balance(id)
	if err != nil {
		log.Printf("Ошибка чтения баланса %s: %v", id, err)
		h.resp.Send(in.ChatID, "❌ Gagal mengambil saldo.")
		return
	}
	stats, err := h.store.UserStats(id)
	if err != nil {
		log.Printf("Ошибка чтения статистики %s: %v", id, err)
		h.resp.Send(in.ChatID, fmt.Sprintf("💰 Saldo kamu: Rp%s", plugin.IDR(balance)))
		return
	}
	h.resp.Send(in.ChatID, fmt.Sprintf(
		"💰 Saldo kamu: Rp%s\n\n📊 Transaksi:\n• Hari ini: %d\n• Minggu ini: %d\n• Bulan ini: %d",
		plugin.IDR(balance), stats.Today, stats.Week, stats.Month))
}

// sendGlobalStats показывает владельцу сводку по всему магазину
func (h *BotHandler) sendGlobalStats(in plugin.Incoming) {
	stats, err := h.store.GlobalStats()
	if err != nil {
		log.Printf("Ошибка чтения глобальной статистики: %v", err)
		h.resp.Send(in.ChatID, "❌ Gagal mengambil statistik.")
		return
	}
	total, err := h.store.TotalUsers()
	if err != nil {
		log.Printf("Ошибка подсчета пользователей: %v", err)
	}
	h.resp.Send(in.ChatID, fmt.Sprintf(
		"📊 *Statistik Toko*\n• Total user: %d\n• Transaksi hari ini: %d\n• Minggu ini: %d\n• Bulan ini: %d",
		total, stats.Today, stats.Week, stats.Month))
}

// sendHistory показывает последние записи журнала покупок
func (h *BotHandler) sendHistory(in plugin.Incoming) {
	logs, err := h.store.History(fmt.Sprintf("%d", in.UserID), 10, "")
	if err != nil {
		log.Printf("Ошибка чтения истории %d: %v", in.UserID, err)
		h.resp.Send(in.ChatID, "❌ Gagal mengambil riwayat.")
		return
	}
	if len(logs) == 0 {
		h.resp.Send(in.ChatID, "📭 Belum ada riwayat transaksi.")
		return
	}

	lines := make([]string, 0, len(logs))
	for i, rec := range logs {
		days := "-"
		if rec.Days.Valid {
			days = fmt.Sprintf("%d hari", rec.Days.Int64)
		}
		vps := "-"
		if rec.VpsID.Valid {
			vps = rec.VpsID.String
		}
		lines = append(lines, fmt.Sprintf("%d. %s | VPS: %s\n%s\n🗓 %s",
			i+1, strings.ToUpper(rec.Kind), vps, days, rec.CreatedAt))
	}
	h.resp.Send(in.ChatID, "📜 *10 Riwayat Transaksi Terbaru:*\n\n"+strings.Join(lines, "\n\n"))
}
