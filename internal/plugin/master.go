package plugin

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ilokitv/botSTORE/internal/session"
)

// MasterSpec описывает мультипротокольный плагин
// продления: протокол и сервер выбираются инлайн-кнопками, дальше
// текстовые шаги как в обычном продлении.
type MasterSpec struct {
	Name        string
	Aliases     []string
	Title       string
	KindPrefix  string // журнал получает тег KindPrefix + "-" + протокол
	CommandTpls map[string]string
	ExpMode     string
	RatePerDay  int64
	Validate    func(protocol, username string) error
}

type masterPlugin struct {
	spec      MasterSpec
	deps      *Deps
	protocols []string
}

// NewMaster собирает мультипротокольный плагин из декларативного описания
func NewMaster(spec MasterSpec, deps *Deps) Plugin {
	// Стабильный порядок кнопок
	protocols := make([]string, 0, len(spec.CommandTpls))
	for _, p := range []string{"ssh", "vmess", "vless", "trojan"} {
		if _, ok := spec.CommandTpls[p]; ok {
			protocols = append(protocols, p)
		}
	}
	for p := range spec.CommandTpls {
		known := false
		for _, q := range protocols {
			if q == p {
				known = true
				break
			}
		}
		if !known {
			protocols = append(protocols, p)
		}
	}
	return &masterPlugin{spec: spec, deps: deps, protocols: protocols}
}

func (p *masterPlugin) Name() string      { return p.spec.Name }
func (p *masterPlugin) Aliases() []string { return p.spec.Aliases }
func (p *masterPlugin) Title() string     { return p.spec.Title }

func (p *masterPlugin) cancelData() string {
	return p.spec.Name + ":cancel"
}

// Execute начинает сессию с выбора протокола инлайн-кнопками
func (p *masterPlugin) Execute(r Responder, in Incoming) {
	if _, err := p.deps.Wallet.EnsureUser(tgID(in.UserID), in.Name); err != nil {
		log.Printf("Ошибка регистрации пользователя %d: %v", in.UserID, err)
	}

	s := p.deps.Sessions.Create(sessionKey(p.spec.Name, in))
	s.Step = StepChooseProtocol

	rows := make([][]Button, 0, len(p.protocols)+1)
	for _, proto := range p.protocols {
		rows = append(rows, []Button{{
			Text: strings.ToUpper(proto),
			Data: fmt.Sprintf("%s:protocol:%s", p.spec.Name, proto),
		}})
	}
	rows = append(rows, []Button{{Text: "❌ Batal", Data: p.cancelData()}})

	r.SendButtons(in.ChatID, fmt.Sprintf("*%s*\n\nPilih protocol:", p.spec.Title), rows)
}

// OnCallback обрабатывает кнопочные шаги: выбор протокола и сервера.
// Устаревшие нажатия (сессии нет или шаг не тот) состояние не меняют.
func (p *masterPlugin) OnCallback(r Responder, cb Callback) bool {
	data := cb.Data
	if !strings.HasPrefix(data, p.spec.Name+":") {
		return false
	}

	key := session.Key{Plugin: p.spec.Name, ChatID: cb.ChatID, UserID: cb.UserID}
	s, ok := p.deps.Sessions.Get(key)
	if !ok {
		r.AnswerCallback(cb.ID, "Sesi tidak ditemukan atau kedaluwarsa.")
		return true
	}

	if data == p.cancelData() {
		p.deps.Sessions.Delete(key)
		r.AnswerCallback(cb.ID, "Dibatalkan.")
		r.Send(cb.ChatID, "✅ Sesi dibatalkan.")
		return true
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return false
	}

	// Выбор протокола
	if s.Step == StepChooseProtocol && parts[1] == "protocol" {
		proto := parts[2]
		if _, ok := p.spec.CommandTpls[proto]; !ok {
			r.AnswerCallback(cb.ID, "Protocol tidak dikenal.")
			return true
		}

		list, err := p.deps.Inventory.VPSList()
		if err != nil {
			p.deps.Sessions.Delete(key)
			r.AnswerCallback(cb.ID, "Inventaris server tidak tersedia.")
			r.Send(cb.ChatID, "❌ "+err.Error())
			return true
		}

		s.Protocol = proto
		s.VPSList = list
		s.Step = StepChooseHost
		p.deps.Sessions.Touch(key)

		// Кнопочный выбор нумеруется с нуля
		rows := make([][]Button, 0, len(list)+1)
		for i, v := range list {
			rows = append(rows, []Button{{
				Text: v.Label(),
				Data: fmt.Sprintf("%s:pickvps:%d", p.spec.Name, i),
			}})
		}
		rows = append(rows, []Button{{Text: "❌ Batal", Data: p.cancelData()}})

		r.AnswerCallback(cb.ID, "Protocol dipilih: "+strings.ToUpper(proto))
		r.SendButtons(cb.ChatID, "Pilih server:", rows)
		return true
	}

	// Выбор сервера
	if s.Step == StepChooseHost && parts[1] == "pickvps" {
		idx, err := strconv.Atoi(parts[2])
		if err != nil || idx < 0 || idx >= len(s.VPSList) {
			r.AnswerCallback(cb.ID, "Pilihan tidak valid.")
			return true
		}

		s.VPS = s.VPSList[idx]
		s.Step = StepChooseName
		p.deps.Sessions.Touch(key)

		r.AnswerCallback(cb.ID, "Server dipilih: "+s.VPS.Label())
		r.ClearButtons(cb.ChatID, cb.MessageID)
		r.Send(cb.ChatID, "👤 Masukkan *username* akun yang akan diperpanjang:")
		return true
	}

	// Нажатие не соответствует текущему шагу, состояние не трогаем
	r.AnswerCallback(cb.ID, "Sesi tidak ditemukan atau kedaluwarsa.")
	return true
}

// Continue обрабатывает текстовые шаги: username и длительность
func (p *masterPlugin) Continue(r Responder, in Incoming) bool {
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
	case StepChooseName:
		if !validUsername(text) {
			r.Send(in.ChatID, "⚠️ Username harus 3-32 karakter (A-Z, a-z, 0-9, _.-).")
			return true
		}
		if err := p.spec.Validate(s.Protocol, text); err != nil {
			p.deps.Sessions.Delete(key)
			r.Send(in.ChatID, fmt.Sprintf("❌ %s\nSaldo tidak terpotong.", err.Error()))
			return true
		}
		s.Username = text
		s.Step = StepChooseDays
		p.deps.Sessions.Touch(key)
		r.Send(in.ChatID, "⏳ Masukkan *lama hari* aktif (contoh: `30`).")
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

	// Кнопочные шаги текстом не продвигаются
	return true
}

// finish выполняет терминальный переход мультипротокольного продления.
// Порядок тот же, что и у purchasePlugin: списание, удаление сессии,
// SSH-команда, журнал. Списание при ошибке на сервере не возвращается.
func (p *masterPlugin) finish(r Responder, in Incoming, key session.Key, s *session.Session) {
	cost := p.spec.RatePerDay * int64(s.Days)
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
	cmd := renderCommand(p.spec.CommandTpls[s.Protocol], s.Username, exp)
	vps := s.VPS
	proto := s.Protocol
	days := s.Days
	p.deps.Sessions.Delete(key)

	r.Send(in.ChatID, fmt.Sprintf(
		"⏳ Menjalankan %s [%s] di VPS: %s\n• Durasi: %d hari (EXP: %s)\n• Harga: Rp%s\n• Saldo setelah: Rp%s",
		p.spec.Title, strings.ToUpper(proto), vps.Label(), days, exp, IDR(cost), IDR(u.Balance-cost)))

	res := p.deps.Exec.Run(vps, cmd)
	if res.OK {
		r.Send(in.ChatID, fmt.Sprintf("✅ %s berhasil!\n\n%s", p.spec.Title, res.Output))
	} else {
		r.Send(in.ChatID, fmt.Sprintf("❌ Gagal: %s", res.Output))
	}

	kind := p.spec.KindPrefix + "-" + proto
	if err := p.deps.Wallet.LogPurchase(id, kind, &days, vps.Label(), ""); err != nil {
		log.Printf("Ошибка записи журнала покупок: %v", err)
	}
}
