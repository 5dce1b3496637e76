package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPasswdValidator(t *testing.T) {
	path := writeRegistry(t, "passwd", "root:x:0:0:root:/root:/bin/bash\nbudi:x:1001:1001::/home/budi:/bin/bash\n")
	validate := PasswdValidator(path)

	assert.NoError(t, validate("budi"))
	assert.NoError(t, validate("root"))

	// Префикс другого имени не считается совпадением
	assert.ErrorIs(t, validate("bud"), ErrAccountNotFound)
	assert.ErrorIs(t, validate("andi"), ErrAccountNotFound)
}

func TestPasswdValidatorUnreadable(t *testing.T) {
	validate := PasswdValidator("/nonexistent/passwd")
	err := validate("budi")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}

func TestXrayValidator(t *testing.T) {
	path := writeRegistry(t, "config.json", `{
"inbounds": []
### budi 2026-01-01
#& candra 2026-01-01
#! dodi 2026-01-01
"clients": [{"email": "eka", "id": "eka-uuid"}]
}`)

	assert.NoError(t, XrayValidator(path, "vmess")("budi"))
	assert.NoError(t, XrayValidator(path, "vless")("candra"))
	assert.NoError(t, XrayValidator(path, "trojan")("dodi"))

	// Маркеры протоколов не взаимозаменяемы
	assert.ErrorIs(t, XrayValidator(path, "vless")("budi"), ErrAccountNotFound)
	assert.ErrorIs(t, XrayValidator(path, "vmess")("dodi"), ErrAccountNotFound)

	// Запись в JSON-виде принимается любым протоколом
	assert.NoError(t, XrayValidator(path, "vmess")("eka"))

	assert.ErrorIs(t, XrayValidator(path, "vmess")("tidakada"), ErrAccountNotFound)
}

func TestXrayValidatorUnknownProtocol(t *testing.T) {
	path := writeRegistry(t, "config.json", "### budi 2026-01-01\n")
	assert.Error(t, XrayValidator(path, "wireguard")("budi"))
}

func TestMasterValidatorDispatch(t *testing.T) {
	passwd := writeRegistry(t, "passwd", "budi:x:1001:1001::/home/budi:/bin/bash\n")
	xray := writeRegistry(t, "config.json", "### candra 2026-01-01\n")

	validate := MasterValidator(passwd, xray)

	assert.NoError(t, validate("ssh", "budi"))
	assert.NoError(t, validate("vmess", "candra"))

	// SSH проверяется только в passwd, xray-протоколы только в конфиге
	assert.ErrorIs(t, validate("ssh", "candra"), ErrAccountNotFound)
	assert.ErrorIs(t, validate("vmess", "budi"), ErrAccountNotFound)
}
