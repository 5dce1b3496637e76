package plugin

import (
	"fmt"
	"log"
	"strconv"
	"strings"
)

// TopupSpec описывает плагин ручного пополнения: пользователь
// называет сумму, владелец подтверждает через /approve
type TopupSpec struct {
	Name      string
	Aliases   []string
	Title     string
	MinAmount int64
	OwnerIDs  []int64
}

type topupPlugin struct {
	spec TopupSpec
	deps *Deps
}

// NewTopup собирает плагин ручного пополнения
func NewTopup(spec TopupSpec, deps *Deps) Plugin {
	if spec.MinAmount <= 0 {
		spec.MinAmount = 1000
	}
	return &topupPlugin{spec: spec, deps: deps}
}

func (p *topupPlugin) Name() string      { return p.spec.Name }
func (p *topupPlugin) Aliases() []string { return p.spec.Aliases }
func (p *topupPlugin) Title() string     { return p.spec.Title }

// Execute начинает сессию ввода суммы пополнения
func (p *topupPlugin) Execute(r Responder, in Incoming) {
	if _, err := p.deps.Wallet.EnsureUser(tgID(in.UserID), in.Name); err != nil {
		log.Printf("Ошибка регистрации пользователя %d: %v", in.UserID, err)
	}

	s := p.deps.Sessions.Create(sessionKey(p.spec.Name, in))
	s.Step = StepChooseAmount

	r.Send(in.ChatID, fmt.Sprintf(
		"*%s*\n\nMasukkan nominal topup (min Rp%s):\n\nKetik /batal untuk membatalkan.",
		p.spec.Title, IDR(p.spec.MinAmount)))
}

// Continue принимает сумму и отправляет заявку владельцам
func (p *topupPlugin) Continue(r Responder, in Incoming) bool {
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

	if s.Step != StepChooseAmount {
		return true
	}

	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil || amount < p.spec.MinAmount {
		r.Send(in.ChatID, fmt.Sprintf("⚠️ Nominal tidak valid. Minimal Rp%s.", IDR(p.spec.MinAmount)))
		return true
	}

	p.deps.Sessions.Delete(key)

	for _, owner := range p.spec.OwnerIDs {
		r.Send(owner, fmt.Sprintf(
			"💰 Permintaan topup dari %s (id %d) sebesar Rp%s.\nKetik /approve %d %d untuk menyetujui.",
			in.Name, in.UserID, IDR(amount), in.UserID, amount))
	}
	r.Send(in.ChatID, "✅ Permintaan topup dikirim. Tunggu konfirmasi admin ya.")
	return true
}

// Approve подтверждает заявку: пополняет баланс и пишет журнал.
// Вызывается только для владельцев (проверяет диспетчер и сам плагин).
func (p *topupPlugin) Approve(r Responder, in Incoming, args []string) {
	if !p.deps.IsOwner(in.UserID) {
		r.Send(in.ChatID, "❌ Hanya admin yang bisa approve.")
		return
	}
	if len(args) < 2 {
		r.Send(in.ChatID, "Format: /approve <user_id> <nominal>")
		return
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		r.Send(in.ChatID, "⚠️ user_id tidak valid.")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		r.Send(in.ChatID, "⚠️ Nominal tidak valid.")
		return
	}

	id := tgID(userID)
	ok, err := p.deps.Wallet.Credit(id, amount)
	if err != nil {
		log.Printf("Ошибка пополнения %s на %d: %v", id, amount, err)
		r.Send(in.ChatID, "❌ Terjadi kesalahan pada dompet.")
		return
	}
	if !ok {
		r.Send(in.ChatID, "⚠️ User tidak ditemukan.")
		return
	}

	meta := fmt.Sprintf(`{"amount":%d,"approved_by":%d}`, amount, in.UserID)
	if err := p.deps.Wallet.LogPurchase(id, "topup", nil, "", meta); err != nil {
		log.Printf("Ошибка записи журнала покупок: %v", err)
	}

	r.Send(in.ChatID, fmt.Sprintf("✅ Topup Rp%s untuk user %d disetujui.", IDR(amount), userID))
	r.Send(userID, fmt.Sprintf("✅ Topup Rp%s sudah masuk ke saldo kamu.", IDR(amount)))
}
