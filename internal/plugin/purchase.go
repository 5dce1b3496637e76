package plugin

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ilokitv/botSTORE/internal/session"
)

// PurchaseSpec описывает однопротокольный платный плагин
// (добавление или продление аккаунта), текстовый поток
type PurchaseSpec struct {
	Name       string
	Aliases    []string
	Title      string
	Kind       string // тег журнала покупок, например "renew-ssh"
	CommandTpl string // шаблон с {USER} и {EXP}
	ExpMode    string // "days" или "date"
	RatePerDay func() int64
	Validate   func(username string) error // nil отключает проверку существования
}

type purchasePlugin struct {
	spec PurchaseSpec
	deps *Deps
}

// NewPurchase собирает платный плагин из декларативного описания
func NewPurchase(spec PurchaseSpec, deps *Deps) Plugin {
	return &purchasePlugin{spec: spec, deps: deps}
}

func (p *purchasePlugin) Name() string      { return p.spec.Name }
func (p *purchasePlugin) Aliases() []string { return p.spec.Aliases }
func (p *purchasePlugin) Title() string     { return p.spec.Title }

// Execute начинает сессию: показывает список серверов и ждет выбора
func (p *purchasePlugin) Execute(r Responder, in Incoming) {
	list, err := p.deps.Inventory.VPSList()
	if err != nil {
		r.Send(in.ChatID, "❌ "+err.Error())
		return
	}

	if _, err := p.deps.Wallet.EnsureUser(tgID(in.UserID), in.Name); err != nil {
		log.Printf("Ошибка регистрации пользователя %d: %v", in.UserID, err)
	}

	s := p.deps.Sessions.Create(sessionKey(p.spec.Name, in))
	s.Step = StepChooseHost
	s.VPSList = list

	r.Send(in.ChatID, fmt.Sprintf(
		"*%s*\n\nBalas ANGKA untuk memilih SERVER:\n\n%s\n\nKetik /batal untuk membatalkan.",
		p.spec.Title, vpsListText(list)))
}

// Continue обрабатывает очередной ввод пользователя.
// Возвращает false, если сессии для этого ключа нет.
func (p *purchasePlugin) Continue(r Responder, in Incoming) bool {
	key := sessionKey(p.spec.Name, in)
	s, ok := p.deps.Sessions.Get(key)
	if !ok {
		return false
	}

	text := strings.TrimSpace(in.Text)

	if isCancel(text) {
		p.deps.Sessions.Delete(key)
		r.Send(in.ChatID, "✅ Sesi dibatalkan.")
		return true
	}

	switch s.Step {
	case StepChooseHost:
		// Текстовый выбор нумеруется с единицы
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 1 || idx > len(s.VPSList) {
			r.Send(in.ChatID, "⚠️ Pilihan tidak valid! Balas dengan angka yang tertera.")
			return true
		}
		s.VPS = s.VPSList[idx-1]
		s.Step = StepChooseName
		p.deps.Sessions.Touch(key)
		r.Send(in.ChatID, "👤 Masukkan *username* akun:")
		return true

	case StepChooseName:
		if !validUsername(text) {
			r.Send(in.ChatID, "⚠️ Username harus 3-32 karakter (A-Z, a-z, 0-9, _.-).")
			return true
		}
		if p.spec.Validate != nil {
			if err := p.spec.Validate(text); err != nil {
				p.deps.Sessions.Delete(key)
				r.Send(in.ChatID, fmt.Sprintf("❌ %s\nSaldo tidak terpotong.", err.Error()))
				return true
			}
		}
		s.Username = text
		s.Step = StepChooseDays
		p.deps.Sessions.Touch(key)
		r.Send(in.ChatID, "⏳ Masukkan lama hari aktif (contoh: `30`):")
		return true

	case StepChooseDays:
		days, ok := parseDays(text)
		if !ok {
			r.Send(in.ChatID, "⚠️ Hari tidak valid (1-3650). Coba lagi.")
			return true
		}
		s.Days = days
		p.finish(r, in, key, s)
		return true
	}

	return true
}

// finish выполняет терминальный переход: списание, затем команда на
// сервере, затем запись в журнал. Сессия удаляется до SSH-вызова, чтобы
// повторное сообщение не запустило терминальный переход еще раз.
// Списание при неудаче на сервере не возвращается, это осознанное
// бизнес-правило магазина.
func (p *purchasePlugin) finish(r Responder, in Incoming, key session.Key, s *session.Session) {
	rate := p.spec.RatePerDay()
	cost := rate * int64(s.Days)
	id := tgID(in.UserID)

	u, err := p.deps.Wallet.EnsureUser(id, in.Name)
	if err != nil {
		p.deps.Sessions.Delete(key)
		log.Printf("Ошибка чтения кошелька %s: %v", id, err)
		r.Send(in.ChatID, "❌ Terjadi kesalahan pada dompet. Coba lagi nanti.")
		return
	}
	if u.Balance < cost {
		p.deps.Sessions.Delete(key)
		r.Send(in.ChatID, fmt.Sprintf("💸 Saldo tidak cukup.\n• Harga: Rp%s\n• Saldo: Rp%s", IDR(cost), IDR(u.Balance)))
		return
	}

	// Авторитетная проверка: условие внутри самого UPDATE
	ok, err := p.deps.Wallet.Debit(id, cost)
	if err != nil {
		p.deps.Sessions.Delete(key)
		log.Printf("Ошибка списания %d у %s: %v", cost, id, err)
		r.Send(in.ChatID, "❌ Terjadi kesalahan pada dompet. Coba lagi nanti.")
		return
	}
	if !ok {
		p.deps.Sessions.Delete(key)
		r.Send(in.ChatID, fmt.Sprintf("💸 Saldo tidak cukup.\n• Harga: Rp%s\n• Saldo: Rp%s", IDR(cost), IDR(u.Balance)))
		return
	}

	exp := expString(s.Days, p.spec.ExpMode)
	cmd := renderCommand(p.spec.CommandTpl, s.Username, exp)
	vps := s.VPS
	days := s.Days
	p.deps.Sessions.Delete(key)

	r.Send(in.ChatID, fmt.Sprintf(
		"⏳ Menjalankan %s di VPS: %s\n• Durasi: %d hari (EXP: %s)\n• Harga: Rp%s\n• Saldo setelah: Rp%s",
		p.spec.Title, vps.Label(), days, exp, IDR(cost), IDR(u.Balance-cost)))

	res := p.deps.Exec.Run(vps, cmd)
	if res.OK {
		r.Send(in.ChatID, fmt.Sprintf("✅ %s berhasil!\n\n%s", p.spec.Title, res.Output))
	} else {
		r.Send(in.ChatID, fmt.Sprintf("❌ Gagal: %s", res.Output))
	}

	if err := p.deps.Wallet.LogPurchase(id, p.spec.Kind, &days, vps.Label(), ""); err != nil {
		log.Printf("Ошибка записи журнала покупок: %v", err)
	}
}
