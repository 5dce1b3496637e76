package wallet

import (
	"database/sql"
	"fmt"

	"github.com/ilokitv/botSTORE/internal/models"
)

// TrialAllowed проверяет, может ли пользователь создать trial-аккаунт сегодня.
// Владельцы (exempt) всегда проходят и в счетчике не участвуют.
// Смена календарного дня сбрасывает счетчик лениво, при первом обращении.
func (s *Store) TrialAllowed(tgID string, limit int, exempt bool) (bool, error) {
	if exempt {
		return true, nil
	}

	var q models.TrialQuota
	err := s.Get(&q, s.Rebind("SELECT tg_id, day, count FROM trial_quota WHERE tg_id = ?"), tgID)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get trial quota: %w", err)
	}

	// После смены дня счетчик больше не действует
	if q.Day != DayWIB() {
		return true, nil
	}
	return q.Count < limit, nil
}

// TrialRecord атомарно занимает слот суточной квоты и сообщает, удалось ли.
// Счетчик инкрементируется только пока он ниже лимита, поэтому две
// параллельные сессии не могут превысить квоту: проигравшая получает false.
// Для exempt-пользователей запись не ведется, их использование невидимо.
func (s *Store) TrialRecord(tgID string, limit int, exempt bool) (bool, error) {
	if exempt {
		return true, nil
	}

	query := s.Rebind(`
	INSERT INTO trial_quota (tg_id, day, count)
	VALUES (?, ?, 1)
	ON CONFLICT (tg_id) DO UPDATE SET
		count = CASE WHEN trial_quota.day = excluded.day THEN trial_quota.count + 1 ELSE 1 END,
		day = excluded.day
	WHERE trial_quota.day <> excluded.day OR trial_quota.count < ?
	`)
	res, err := s.Exec(query, tgID, DayWIB(), limit)
	if err != nil {
		return false, fmt.Errorf("failed to record trial: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record trial: %w", err)
	}
	return n > 0, nil
}
