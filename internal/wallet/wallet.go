package wallet

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ilokitv/botSTORE/internal/config"
	"github.com/ilokitv/botSTORE/internal/models"
)

// Store представляет хранилище кошельков и журнала покупок.
// Это единственная точка изменения баланса; все списания идут через Debit.
type Store struct {
	*sqlx.DB
	driver string
}

// New создает новое соединение с базой данных
func New(cfg *config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Connect(cfg.DriverName(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Проверка соединения
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{DB: db, driver: cfg.DriverName()}, nil
}

// InitTables создает таблицы в базе данных, если они не существуют
func (s *Store) InitTables() error {
	logID := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		logID = "id BIGSERIAL PRIMARY KEY"
	}

	// Таблица пользователей с балансом
	_, err := s.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		tg_id TEXT PRIMARY KEY,
		name TEXT,
		balance BIGINT NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	// Журнал покупок (append-only)
	_, err = s.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS purchase_logs (
		%s,
		tg_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		days BIGINT,
		vps_id TEXT,
		meta TEXT,
		created_at TEXT NOT NULL
	)
	`, logID))
	if err != nil {
		return fmt.Errorf("failed to create purchase_logs table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_plogs_tg ON purchase_logs(tg_id)",
		"CREATE INDEX IF NOT EXISTS idx_plogs_created ON purchase_logs(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_plogs_kind ON purchase_logs(kind)",
	} {
		if _, err := s.Exec(idx); err != nil {
			return fmt.Errorf("failed to create purchase_logs index: %w", err)
		}
	}

	// Суточные счетчики trial-аккаунтов
	_, err = s.Exec(`
	CREATE TABLE IF NOT EXISTS trial_quota (
		tg_id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0
	)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trial_quota table: %w", err)
	}

	return nil
}

// nowUTC возвращает текущее время в формате ISO (UTC).
// created_at хранится строкой, диапазоны сравниваются лексикографически.
func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// EnsureUser создает пользователя при первом контакте и обновляет имя.
// Идемпотентная операция, возвращает актуальную запись.
func (s *Store) EnsureUser(tgID, name string) (*models.User, error) {
	query := s.Rebind(`
	INSERT INTO users (tg_id, name, balance, created_at)
	VALUES (?, ?, 0, ?)
	ON CONFLICT (tg_id) DO UPDATE SET name = excluded.name
	`)
	if _, err := s.Exec(query, tgID, name, nowUTC()); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	var user models.User
	err := s.Get(&user, s.Rebind("SELECT tg_id, name, balance, created_at FROM users WHERE tg_id = ?"), tgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Balance возвращает текущий баланс пользователя
func (s *Store) Balance(tgID string) (int64, error) {
	var balance int64
	err := s.Get(&balance, s.Rebind("SELECT balance FROM users WHERE tg_id = ?"), tgID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Debit атомарно списывает amount с баланса пользователя.
// Условие balance >= amount проверяется внутри того же UPDATE, поэтому
// конкурентные списания не могут увести баланс в минус. Возвращает false,
// если средств не хватило; ничего при этом не меняется.
func (s *Store) Debit(tgID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	res, err := s.Exec(
		s.Rebind("UPDATE users SET balance = balance - ? WHERE tg_id = ? AND balance >= ?"),
		amount, tgID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Credit пополняет баланс пользователя (топап)
func (s *Store) Credit(tgID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	res, err := s.Exec(s.Rebind("UPDATE users SET balance = balance + ? WHERE tg_id = ?"), amount, tgID)
	if err != nil {
		return false, fmt.Errorf("failed to credit balance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// LogPurchase добавляет запись в журнал покупок.
// Записи никогда не изменяются и не удаляются.
func (s *Store) LogPurchase(tgID, kind string, days *int, vpsID, meta string) error {
	var d sql.NullInt64
	if days != nil {
		d = sql.NullInt64{Int64: int64(*days), Valid: true}
	}
	var v, m sql.NullString
	if vpsID != "" {
		v = sql.NullString{String: vpsID, Valid: true}
	}
	if meta != "" {
		m = sql.NullString{String: meta, Valid: true}
	}

	query := s.Rebind(`
	INSERT INTO purchase_logs (tg_id, kind, days, vps_id, meta, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if _, err := s.Exec(query, tgID, kind, d, v, m, nowUTC()); err != nil {
		return fmt.Errorf("failed to log purchase: %w", err)
	}
	return nil
}

// History возвращает последние записи журнала пользователя, новые первыми.
// kind фильтрует по виду операции, пустая строка отключает фильтр.
func (s *Store) History(tgID string, limit int, kind string) ([]models.PurchaseLog, error) {
	if limit <= 0 {
		limit = 10
	}

	query := "SELECT * FROM purchase_logs WHERE tg_id = ?"
	args := []interface{}{tgID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var logs []models.PurchaseLog
	if err := s.Select(&logs, s.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get user history: %w", err)
	}
	return logs, nil
}

// TotalUsers возвращает общее количество пользователей
func (s *Store) TotalUsers() (int, error) {
	var n int
	if err := s.Get(&n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// countLogsBetween считает записи журнала в полуинтервале [start, end)
func (s *Store) countLogsBetween(start, end, tgID string) (int, error) {
	query := "SELECT COUNT(*) FROM purchase_logs WHERE created_at >= ? AND created_at < ?"
	args := []interface{}{start, end}
	if tgID != "" {
		query += " AND tg_id = ?"
		args = append(args, tgID)
	}

	var n int
	if err := s.Get(&n, s.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count purchase logs: %w", err)
	}
	return n, nil
}

// UserStats возвращает статистику покупок пользователя за день/неделю/месяц (WIB)
func (s *Store) UserStats(tgID string) (*models.UsageStats, error) {
	return s.stats(tgID)
}

// GlobalStats возвращает статистику покупок по всем пользователям (WIB)
func (s *Store) GlobalStats() (*models.UsageStats, error) {
	return s.stats("")
}

func (s *Store) stats(tgID string) (*models.UsageStats, error) {
	stats := &models.UsageStats{}

	ds, de := RangeToday()
	n, err := s.countLogsBetween(ds, de, tgID)
	if err != nil {
		return nil, err
	}
	stats.Today = n

	ws, we := RangeThisWeek()
	n, err = s.countLogsBetween(ws, we, tgID)
	if err != nil {
		return nil, err
	}
	stats.Week = n

	ms, me := RangeThisMonth()
	n, err = s.countLogsBetween(ms, me, tgID)
	if err != nil {
		return nil, err
	}
	stats.Month = n

	return stats, nil
}
