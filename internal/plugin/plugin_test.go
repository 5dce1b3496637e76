package plugin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilokitv/botSTORE/internal/config"
	"github.com/ilokitv/botSTORE/internal/inventory"
	"github.com/ilokitv/botSTORE/internal/models"
	"github.com/ilokitv/botSTORE/internal/session"
	"github.com/ilokitv/botSTORE/internal/sshx"
	"github.com/ilokitv/botSTORE/internal/wallet"
)

// -- Общие фейки и окружение плагинных тестов --

type sentMsg struct {
	ChatID int64
	Text   string
}

type sentButtons struct {
	ChatID int64
	Text   string
	Rows   [][]Button
}

type fakeResponder struct {
	Msgs      []sentMsg
	Buttons   []sentButtons
	Callbacks []string
	Cleared   int
}

func (f *fakeResponder) Send(chatID int64, text string) {
	f.Msgs = append(f.Msgs, sentMsg{ChatID: chatID, Text: text})
}

func (f *fakeResponder) SendButtons(chatID int64, text string, rows [][]Button) {
	f.Buttons = append(f.Buttons, sentButtons{ChatID: chatID, Text: text, Rows: rows})
}

func (f *fakeResponder) AnswerCallback(id, text string) {
	f.Callbacks = append(f.Callbacks, text)
}

func (f *fakeResponder) ClearButtons(chatID int64, messageID int) {
	f.Cleared++
}

// last возвращает текст последнего отправленного сообщения
func (f *fakeResponder) last() string {
	if len(f.Msgs) == 0 {
		return ""
	}
	return f.Msgs[len(f.Msgs)-1].Text
}

// sentTo возвращает тексты всех сообщений в указанный чат
func (f *fakeResponder) sentTo(chatID int64) []string {
	var out []string
	for _, m := range f.Msgs {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type execCall struct {
	VPS     models.VPS
	Command string
}

type fakeRunner struct {
	Result sshx.Result
	Calls  []execCall
}

func (f *fakeRunner) Run(vps models.VPS, command string) sshx.Result {
	f.Calls = append(f.Calls, execCall{VPS: vps, Command: command})
	return f.Result
}

const (
	testChatID  = int64(10)
	testUserID  = int64(42)
	ownerUserID = int64(1)
)

// testEnv собирает все зависимости плагина на фейках и sqlite в памяти
type testEnv struct {
	deps   *Deps
	resp   *fakeResponder
	runner *fakeRunner
	store  *wallet.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := wallet.New(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.InitTables())
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	vpsFile := filepath.Join(dir, "vps.json")
	require.NoError(t, os.WriteFile(vpsFile, []byte(`[
		{"id": "sg-1", "host": "1.2.3.4", "username": "root", "password": "x"},
		{"id": "sg-2", "host": "5.6.7.8", "username": "root", "password": "x"}
	]`), 0644))

	runner := &fakeRunner{Result: sshx.Result{OK: true, Output: "Akun dibuat"}}

	deps := &Deps{
		Wallet:    store,
		Inventory: inventory.New(&config.InventoryConfig{VPSFile: vpsFile}, 1000),
		Exec:      runner,
		Sessions:  session.NewRegistry(time.Minute, nil),
		IsOwner:   func(id int64) bool { return id == ownerUserID },
	}

	return &testEnv{deps: deps, resp: &fakeResponder{}, runner: runner, store: store}
}

// credit регистрирует тестового пользователя и задает ему баланс
func (e *testEnv) credit(t *testing.T, userID int64, amount int64) {
	t.Helper()
	_, err := e.store.EnsureUser(tgID(userID), "Budi")
	require.NoError(t, err)
	if amount > 0 {
		_, err = e.store.Credit(tgID(userID), amount)
		require.NoError(t, err)
	}
}

func (e *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	b, err := e.store.Balance(tgID(userID))
	require.NoError(t, err)
	return b
}

// brokenInventory возвращает источник с несуществующим файлом
func brokenInventory() *inventory.Source {
	return inventory.New(&config.InventoryConfig{VPSFile: "/nonexistent/vps.json"}, 1000)
}

func incoming(text string) Incoming {
	return Incoming{ChatID: testChatID, UserID: testUserID, Name: "Budi", Text: text}
}

// -- Хелперы --

func TestIsCancel(t *testing.T) {
	for _, text := range []string{"batal", "/batal", ".batal", "BATAL", "/Batal", " batal "} {
		assert.True(t, isCancel(text), text)
	}
	for _, text := range []string{"batalkan", "membatal", "batal sekarang", ""} {
		assert.False(t, isCancel(text), text)
	}
}

func TestValidUsername(t *testing.T) {
	for _, name := range []string{"abc", "budi_01", "a.b-c", strings.Repeat("x", 32)} {
		assert.True(t, validUsername(name), name)
	}
	for _, name := range []string{"ab", strings.Repeat("x", 33), "budi santoso", "budi;rm", "", "бот"} {
		assert.False(t, validUsername(name), name)
	}
}

func TestParseDays(t *testing.T) {
	days, ok := parseDays("30")
	assert.True(t, ok)
	assert.Equal(t, 30, days)

	_, ok = parseDays("1")
	assert.True(t, ok)
	_, ok = parseDays("3650")
	assert.True(t, ok)

	for _, text := range []string{"0", "-5", "3651", "abc", "", "1.5"} {
		_, ok := parseDays(text)
		assert.False(t, ok, text)
	}
}

func TestIDR(t *testing.T) {
	assert.Equal(t, "0", IDR(0))
	assert.Equal(t, "999", IDR(999))
	assert.Equal(t, "1.000", IDR(1000))
	assert.Equal(t, "2.000.000", IDR(2000000))
	assert.Equal(t, "-15.500", IDR(-15500))
}

func TestRenderCommand(t *testing.T) {
	cmd := renderCommand("/usr/local/sbin/bot-extssh {USER} {EXP}", "budi", "10")
	assert.Equal(t, "/usr/local/sbin/bot-extssh budi 10", cmd)
}

func TestExpString(t *testing.T) {
	assert.Equal(t, "10", expString(10, "days"))
	assert.Equal(t, "10", expString(10, ""))

	// Режим "date" дает календарную дату today+days
	want := time.Now().AddDate(0, 0, 30).Format("2006-01-02")
	assert.Equal(t, want, expString(30, "date"))
}
