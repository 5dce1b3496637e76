package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilokitv/botSTORE/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVPSList(t *testing.T) {
	dir := t.TempDir()
	vpsFile := writeFile(t, dir, "vps.json", `[
		{"id": "sg-1", "host": "1.2.3.4", "port": 22, "username": "root", "password": "secret"},
		{"id": "", "host": "5.6.7.8", "username": "root", "password": "secret"}
	]`)

	src := New(&config.InventoryConfig{VPSFile: vpsFile}, 1000)

	list, err := src.VPSList()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "sg-1", list[0].Label())
	assert.Equal(t, 22, list[0].SSHPort())

	// Без id метка собирается из адреса, порт по умолчанию 22
	assert.Equal(t, "5.6.7.8:22", list[1].Label())
	assert.Equal(t, 22, list[1].SSHPort())
}

func TestVPSListUnavailable(t *testing.T) {
	dir := t.TempDir()

	// Файл отсутствует
	src := New(&config.InventoryConfig{VPSFile: filepath.Join(dir, "missing.json")}, 1000)
	_, err := src.VPSList()
	assert.ErrorIs(t, err, ErrUnavailable)

	// Файл не парсится
	broken := writeFile(t, dir, "broken.json", `{not json`)
	src = New(&config.InventoryConfig{VPSFile: broken}, 1000)
	_, err = src.VPSList()
	assert.ErrorIs(t, err, ErrUnavailable)

	// Пустой список
	empty := writeFile(t, dir, "empty.json", `[]`)
	src = New(&config.InventoryConfig{VPSFile: empty}, 1000)
	_, err = src.VPSList()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRatePerDay(t *testing.T) {
	dir := t.TempDir()
	priceFile := writeFile(t, dir, "harga.json", `{"renewssh": 200, "renewvmess": 300, "gratis": 0}`)

	src := New(&config.InventoryConfig{PriceFile: priceFile}, 1000)

	assert.Equal(t, int64(200), src.RatePerDay("renewssh"))
	assert.Equal(t, int64(300), src.RatePerDay("renewvmess"))

	// Нет записи или неположительный тариф, берется значение по умолчанию
	assert.Equal(t, int64(1000), src.RatePerDay("renewtrojan"))
	assert.Equal(t, int64(1000), src.RatePerDay("gratis"))
}

func TestRatePerDayMissingFile(t *testing.T) {
	src := New(&config.InventoryConfig{PriceFile: "/nonexistent/harga.json"}, 750)
	assert.Equal(t, int64(750), src.RatePerDay("renewssh"))
}
