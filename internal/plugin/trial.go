package plugin

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// TrialSpec описывает бесплатный trial-плагин.
// Аккаунт живет Minutes минут, количество на пользователя в день
// ограничено квотой (владельцы не ограничены и не учитываются).
type TrialSpec struct {
	Name       string
	Aliases    []string
	Title      string
	Kind       string // тег журнала, например "trial-ssh"
	CommandTpl string // шаблон с {MIN}
	Minutes    int
	DailyLimit int
}

type trialPlugin struct {
	spec TrialSpec
	deps *Deps
}

// NewTrial собирает trial-плагин из декларативного описания
func NewTrial(spec TrialSpec, deps *Deps) Plugin {
	return &trialPlugin{spec: spec, deps: deps}
}

func (p *trialPlugin) Name() string      { return p.spec.Name }
func (p *trialPlugin) Aliases() []string { return p.spec.Aliases }
func (p *trialPlugin) Title() string     { return p.spec.Title }

// Execute проверяет суточную квоту и начинает сессию выбора сервера
func (p *trialPlugin) Execute(r Responder, in Incoming) {
	id := tgID(in.UserID)
	exempt := p.deps.IsOwner(in.UserID)

	allowed, err := p.deps.Wallet.TrialAllowed(id, p.spec.DailyLimit, exempt)
	if err != nil {
		log.Printf("Ошибка проверки trial-квоты %s: %v", id, err)
		r.Send(in.ChatID, "❌ Terjadi kesalahan. Coba lagi nanti.")
		return
	}
	if !allowed {
		r.Send(in.ChatID, fmt.Sprintf(
			"⚠️ Kamu sudah mencapai batas %d kali membuat trial hari ini.\nCoba lagi besok ya!",
			p.spec.DailyLimit))
		return
	}

	list, err := p.deps.Inventory.VPSList()
	if err != nil {
		r.Send(in.ChatID, "❌ "+err.Error())
		return
	}

	if _, err := p.deps.Wallet.EnsureUser(id, in.Name); err != nil {
		log.Printf("Ошибка регистрации пользователя %d: %v", in.UserID, err)
	}

	s := p.deps.Sessions.Create(sessionKey(p.spec.Name, in))
	s.Step = StepChooseHost
	s.VPSList = list

	r.Send(in.ChatID, fmt.Sprintf(
		"*%s*\nBalas ANGKA untuk memilih VPS:\n\n%s\n\nKetik /batal untuk membatalkan.",
		p.spec.Title, vpsListText(list)))
}

// Continue обрабатывает выбор сервера и сразу создает trial-аккаунт
func (p *trialPlugin) Continue(r Responder, in Incoming) bool {
	key := sessionKey(p.spec.Name, in)
	_, ok := p.deps.Sessions.Get(key)
	if !ok {
		return false
	}

	text := strings.TrimSpace(in.Text)

	if isCancel(text) {
		p.deps.Sessions.Delete(key)
		r.Send(in.ChatID, "✅ Sesi trial dibatalkan.")
		return true
	}

	s, _ := p.deps.Sessions.Get(key)
	if s.Step != StepChooseHost {
		return true
	}

	idx, err := strconv.Atoi(text)
	if err != nil || idx < 1 || idx > len(s.VPSList) {
		r.Send(in.ChatID, "⚠️ Pilihan tidak valid! Balas dengan angka yang tertera.")
		return true
	}

	vps := s.VPSList[idx-1]
	p.deps.Sessions.Delete(key)

	// Слот квоты занимается ровно перед выполнением: проверка в Execute
	// могла устареть, пока шли другие сессии этого же пользователя
	id := tgID(in.UserID)
	exempt := p.deps.IsOwner(in.UserID)
	claimed, err := p.deps.Wallet.TrialRecord(id, p.spec.DailyLimit, exempt)
	if err != nil {
		log.Printf("Ошибка записи trial-квоты %s: %v", id, err)
		r.Send(in.ChatID, "❌ Terjadi kesalahan. Coba lagi nanti.")
		return true
	}
	if !claimed {
		r.Send(in.ChatID, fmt.Sprintf(
			"⚠️ Kamu sudah mencapai batas %d kali membuat trial hari ini.\nCoba lagi besok ya!",
			p.spec.DailyLimit))
		return true
	}

	r.Send(in.ChatID, fmt.Sprintf("⏳ Membuat %s di VPS: %s", p.spec.Title, vps.Label()))

	cmd := strings.ReplaceAll(p.spec.CommandTpl, "{MIN}", strconv.Itoa(p.spec.Minutes))
	res := p.deps.Exec.Run(vps, cmd)
	if res.OK {
		r.Send(in.ChatID, fmt.Sprintf("✅ %s Berhasil Dibuat!\n\n%s", p.spec.Title, res.Output))
	} else {
		r.Send(in.ChatID, fmt.Sprintf("❌ SSH Error: %s", res.Output))
	}

	if err := p.deps.Wallet.LogPurchase(id, p.spec.Kind, nil, vps.Label(), ""); err != nil {
		log.Printf("Ошибка записи журнала покупок: %v", err)
	}
	return true
}
