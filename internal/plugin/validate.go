package plugin

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrAccountNotFound возвращается валидаторами, когда аккаунт
// отсутствует в реестре целевой системы
var ErrAccountNotFound = errors.New("akun tidak ditemukan")

// Маркеры аккаунтов в конфиге xray по протоколам
var xrayMarkers = map[string]string{
	"vmess":  "###",
	"vless":  "#&",
	"trojan": "#!",
}

// PasswdValidator проверяет наличие аккаунта в passwd-реестре SSH.
// Нечитаемый реестр считается провалом валидации.
func PasswdValidator(path string) func(username string) error {
	return func(username string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("gagal membaca %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, username+":") {
				return nil
			}
		}
		return fmt.Errorf("%w: user %s tidak ditemukan di sistem SSH", ErrAccountNotFound, username)
	}
}

// XrayValidator проверяет наличие аккаунта в конфиге xray по маркеру протокола
func XrayValidator(path, protocol string) func(username string) error {
	return func(username string) error {
		marker, ok := xrayMarkers[protocol]
		if !ok {
			return fmt.Errorf("protocol %s tidak dikenal", protocol)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("gagal membaca %s: %w", path, err)
		}
		prefix := marker + " " + username + " "
		quoted := `"` + username + `"`
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, prefix) || strings.Contains(line, quoted) {
				return nil
			}
		}
		return fmt.Errorf("%w: user %s tidak ditemukan di %s config", ErrAccountNotFound, username, protocol)
	}
}

// MasterValidator выбирает валидатор по протоколу для мультипротокольного плагина
func MasterValidator(passwdPath, xrayPath string) func(protocol, username string) error {
	return func(protocol, username string) error {
		if protocol == "ssh" {
			return PasswdValidator(passwdPath)(username)
		}
		return XrayValidator(xrayPath, protocol)(username)
	}
}
