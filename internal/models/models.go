package models

import (
	"database/sql"
	"fmt"
)

// User представляет пользователя бота с балансом кошелька
type User struct {
	TgID      string `db:"tg_id" json:"tg_id"`
	Name      string `db:"name" json:"name"`
	Balance   int64  `db:"balance" json:"balance"`
	CreatedAt string `db:"created_at" json:"created_at"` // ISO-строка (UTC)
}

// PurchaseLog представляет запись журнала покупок (append-only)
type PurchaseLog struct {
	ID        int64          `db:"id" json:"id"`
	TgID      string         `db:"tg_id" json:"tg_id"`
	Kind      string         `db:"kind" json:"kind"` // например: "renew-ssh" | "trial-vmess" | "topup"
	Days      sql.NullInt64  `db:"days" json:"days"`
	VpsID     sql.NullString `db:"vps_id" json:"vps_id"`
	Meta      sql.NullString `db:"meta" json:"meta"`
	CreatedAt string         `db:"created_at" json:"created_at"`
}

// TrialQuota представляет суточный счетчик trial-аккаунтов пользователя
type TrialQuota struct {
	TgID  string `db:"tg_id" json:"tg_id"`
	Day   string `db:"day" json:"day"` // календарный день в формате YYYY-MM-DD
	Count int    `db:"count" json:"count"`
}

// VPS представляет целевой сервер из файла инвентаря (только для чтения)
type VPS struct {
	ID       string `json:"id,omitempty"`
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SSHPort возвращает порт SSH с учетом значения по умолчанию
func (v VPS) SSHPort() int {
	if v.Port <= 0 {
		return 22
	}
	return v.Port
}

// Label возвращает человекочитаемую метку сервера
func (v VPS) Label() string {
	if v.ID != "" {
		return v.ID
	}
	return fmt.Sprintf("%s:%d", v.Host, v.SSHPort())
}

// UsageStats представляет статистику покупок по окнам WIB (UTC+7)
type UsageStats struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
}
