package plugin

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilokitv/botSTORE/internal/sshx"
)

func newRenewSSH(env *testEnv, validate func(string) error) Plugin {
	return NewPurchase(PurchaseSpec{
		Name:       "renewssh",
		Title:      "RENEW SSH",
		Kind:       "renew-ssh",
		CommandTpl: "/usr/local/sbin/bot-extssh {USER} {EXP}",
		ExpMode:    "days",
		RatePerDay: func() int64 { return 200 },
		Validate:   validate,
	}, env.deps)
}

func TestPurchaseHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	assert.Contains(t, env.resp.last(), "RENEW SSH")
	assert.Contains(t, env.resp.last(), "1. sg-1")
	assert.Contains(t, env.resp.last(), "2. sg-2")

	require.True(t, p.Continue(env.resp, incoming("1")))
	assert.Contains(t, env.resp.last(), "username")

	require.True(t, p.Continue(env.resp, incoming("budi")))
	assert.Contains(t, env.resp.last(), "hari")

	require.True(t, p.Continue(env.resp, incoming("10")))

	// Списание 200 * 10 и команда на выбранном сервере
	assert.Equal(t, int64(3000), env.balance(t, testUserID))
	require.Len(t, env.runner.Calls, 1)
	assert.Equal(t, "sg-1", env.runner.Calls[0].VPS.Label())
	assert.Equal(t, "/usr/local/sbin/bot-extssh budi 10", env.runner.Calls[0].Command)
	assert.Contains(t, env.resp.last(), "berhasil")
	assert.Contains(t, env.resp.last(), "Akun dibuat")

	logs, err := env.store.History(tgID(testUserID), 10, "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "renew-ssh", logs[0].Kind)
	assert.Equal(t, int64(10), logs[0].Days.Int64)
	assert.Equal(t, "sg-1", logs[0].VpsID.String)

	// Сессия завершена, дальнейший ввод плагину не принадлежит
	assert.False(t, p.Continue(env.resp, incoming("10")))
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 100)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))
	p.Continue(env.resp, incoming("10"))

	// Ничего не выполнено и не записано, баланс нетронут
	assert.Contains(t, env.resp.last(), "Saldo tidak cukup")
	assert.Contains(t, env.resp.last(), "2.000")
	assert.Empty(t, env.runner.Calls)
	assert.Equal(t, int64(100), env.balance(t, testUserID))

	logs, err := env.store.History(tgID(testUserID), 10, "")
	require.NoError(t, err)
	assert.Empty(t, logs)

	// Сессия удалена
	assert.False(t, p.Continue(env.resp, incoming("10")))
}

func TestPurchaseInvalidUsernameKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))

	// Слишком короткое имя, повтор на том же шаге
	require.True(t, p.Continue(env.resp, incoming("ab")))
	assert.Contains(t, env.resp.last(), "Username harus")

	require.True(t, p.Continue(env.resp, incoming("budi santoso")))
	assert.Contains(t, env.resp.last(), "Username harus")

	require.True(t, p.Continue(env.resp, incoming("budi")))
	assert.Contains(t, env.resp.last(), "hari")
}

func TestPurchaseValidatorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, func(username string) error {
		return errors.New("akun tidak ditemukan")
	})

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))

	// Провал валидации завершает сессию без списания
	assert.Contains(t, env.resp.last(), "akun tidak ditemukan")
	assert.Contains(t, env.resp.last(), "Saldo tidak terpotong")
	assert.Equal(t, int64(5000), env.balance(t, testUserID))
	assert.Empty(t, env.runner.Calls)
	assert.False(t, p.Continue(env.resp, incoming("budi")))
}

func TestPurchaseCancel(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))

	require.True(t, p.Continue(env.resp, incoming("batal")))
	assert.Contains(t, env.resp.last(), "Sesi dibatalkan")
	assert.False(t, p.Continue(env.resp, incoming("1")))

	// Отмена освобождает ключ, новая сессия начинается с чистого листа
	p.Execute(env.resp, incoming("/renewssh"))
	require.True(t, p.Continue(env.resp, incoming("2")))
	assert.Contains(t, env.resp.last(), "username")
}

func TestPurchaseCancelTokens(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	for _, token := range []string{"/batal", ".batal", "BATAL"} {
		p.Execute(env.resp, incoming("/renewssh"))
		require.True(t, p.Continue(env.resp, incoming(token)), token)
		assert.Contains(t, env.resp.last(), "Sesi dibatalkan")
	}
}

func TestPurchaseInvalidHostChoice(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))

	for _, text := range []string{"0", "3", "abc", "-1"} {
		require.True(t, p.Continue(env.resp, incoming(text)), text)
		assert.Contains(t, env.resp.last(), "Pilihan tidak valid")
	}

	// Сессия пережила все повторы
	require.True(t, p.Continue(env.resp, incoming("2")))
	assert.Contains(t, env.resp.last(), "username")
}

func TestPurchaseInvalidDays(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 1000000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))

	for _, text := range []string{"0", "3651", "abc", "-1"} {
		require.True(t, p.Continue(env.resp, incoming(text)), text)
		assert.Contains(t, env.resp.last(), "Hari tidak valid")
	}

	// Верхняя граница диапазона принимается
	require.True(t, p.Continue(env.resp, incoming("3650")))
	assert.Equal(t, int64(1000000-200*3650), env.balance(t, testUserID))
}

func TestPurchaseRemoteFailureKeepsDebit(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	env.runner.Result = sshx.Result{OK: false, Output: "connection refused"}
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))
	p.Continue(env.resp, incoming("10"))

	// Деньги не возвращаются, журнал пополняется даже при ошибке сервера
	assert.Contains(t, env.resp.last(), "Gagal")
	assert.Contains(t, env.resp.last(), "connection refused")
	assert.Equal(t, int64(3000), env.balance(t, testUserID))

	logs, err := env.store.History(tgID(testUserID), 10, "renew-ssh")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestPurchaseDateExpMode(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := NewPurchase(PurchaseSpec{
		Name:       "addssh",
		Title:      "ADD SSH",
		Kind:       "add-ssh",
		CommandTpl: "/usr/local/sbin/bot-addssh {USER} {EXP}",
		ExpMode:    "date",
		RatePerDay: func() int64 { return 100 },
	}, env.deps)

	p.Execute(env.resp, incoming("/addssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))
	p.Continue(env.resp, incoming("30"))

	want := time.Now().AddDate(0, 0, 30).Format("2006-01-02")
	require.Len(t, env.runner.Calls, 1)
	assert.Equal(t, "/usr/local/sbin/bot-addssh budi "+want, env.runner.Calls[0].Command)
}

func TestPurchaseInventoryUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Inventory = brokenInventory()
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	assert.Contains(t, env.resp.last(), "data VPS kosong/tidak valid")

	// Сессия не создана
	assert.False(t, p.Continue(env.resp, incoming("1")))
}

func TestPurchaseExecuteRestartsSession(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))

	// Повторный запуск команды вытесняет старую сессию
	p.Execute(env.resp, incoming("/renewssh"))
	require.True(t, p.Continue(env.resp, incoming("2")))
	assert.Contains(t, env.resp.last(), "username")
}

func TestPurchaseSessionsIsolatedByUser(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))

	// Ввод другого пользователя в том же чате сессию не продвигает
	other := Incoming{ChatID: testChatID, UserID: 77, Name: "Andi", Text: "1"}
	assert.False(t, p.Continue(env.resp, other))

	require.True(t, p.Continue(env.resp, incoming("1")))
	assert.Contains(t, env.resp.last(), "username")
}

func TestPurchaseProgressMessage(t *testing.T) {
	env := newTestEnv(t)
	env.credit(t, testUserID, 5000)
	p := newRenewSSH(env, nil)

	p.Execute(env.resp, incoming("/renewssh"))
	p.Continue(env.resp, incoming("1"))
	p.Continue(env.resp, incoming("budi"))
	p.Continue(env.resp, incoming("10"))

	msgs := env.resp.sentTo(testChatID)
	require.GreaterOrEqual(t, len(msgs), 2)
	progress := msgs[len(msgs)-2]
	assert.True(t, strings.Contains(progress, "Menjalankan RENEW SSH"), progress)
	assert.Contains(t, progress, "10 hari")
	assert.Contains(t, progress, "Rp2.000")
	assert.Contains(t, progress, "Saldo setelah: Rp3.000")
}
