package session

import (
	"log"
	"sync"
	"time"

	"github.com/ilokitv/botSTORE/internal/models"
)

// DefaultTTL задает время бездействия, после которого сессия удаляется
const DefaultTTL = 60 * time.Second

// Key однозначно определяет сессию: на одну тройку
// (плагин, чат, пользователь) существует не более одной живой сессии
type Key struct {
	Plugin string
	ChatID int64
	UserID int64
}

// Session хранит состояние незавершенного диалога покупки
type Session struct {
	Step     int
	Protocol string
	VPSList  []models.VPS
	VPS      models.VPS
	Username string
	Days     int

	timer *time.Timer
	gen   uint64
}

// Registry владеет всеми живыми сессиями и их таймерами бездействия.
// Таймер взводится при создании, перевзводится при каждом шаге (Touch)
// и останавливается при удалении. Каждый таймер привязан к конкретной
// сессии и ее поколению: сработавший таймер удаляет ключ только если
// там все еще та же сессия того же поколения, поэтому устаревший
// таймер не трогает ни пересозданную сессию, ни сессию после Touch.
type Registry struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	ttl      time.Duration
	onExpire func(Key)
}

// NewRegistry создает реестр сессий. onExpire вызывается после удаления
// сессии по таймауту (может быть nil).
func NewRegistry(ttl time.Duration, onExpire func(Key)) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		sessions: make(map[Key]*Session),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Create создает новую сессию. Существующая сессия с тем же ключом
// детерминированно вытесняется вместе со своим таймером.
func (r *Registry) Create(key Key) *Session {
	r.mu.Lock()
	if old, ok := r.sessions[key]; ok {
		old.timer.Stop()
	}

	s := &Session{}
	r.arm(key, s)
	r.sessions[key] = s
	r.mu.Unlock()
	return s
}

// arm взводит свежий таймер нового поколения. Вызывается под r.mu.
func (r *Registry) arm(key Key, s *Session) {
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(r.ttl, func() { r.expire(key, s, gen) })
}

// Get возвращает живую сессию по ключу
func (r *Registry) Get(key Key) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	r.mu.Unlock()
	return s, ok
}

// Touch сбрасывает таймер бездействия после очередного шага
func (r *Registry) Touch(key Key) {
	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		// Reset уже сработавшего таймера не отменил бы его ожидающий
		// вызов, поэтому вместо сброса взводится таймер нового поколения
		s.timer.Stop()
		r.arm(key, s)
	}
	r.mu.Unlock()
}

// Delete удаляет сессию и останавливает ее таймер
func (r *Registry) Delete(key Key) {
	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		s.timer.Stop()
		delete(r.sessions, key)
	}
	r.mu.Unlock()
}

// CancelAll удаляет все сессии пользователя в чате (глобальный /batal).
// Возвращает количество удаленных сессий.
func (r *Registry) CancelAll(chatID, userID int64) int {
	r.mu.Lock()
	n := 0
	for key, s := range r.sessions {
		if key.ChatID == chatID && key.UserID == userID {
			s.timer.Stop()
			delete(r.sessions, key)
			n++
		}
	}
	r.mu.Unlock()
	return n
}

// Len возвращает количество живых сессий
func (r *Registry) Len() int {
	r.mu.Lock()
	n := len(r.sessions)
	r.mu.Unlock()
	return n
}

// expire удаляет сессию по таймауту бездействия
func (r *Registry) expire(key Key, s *Session, gen uint64) {
	r.mu.Lock()
	cur, ok := r.sessions[key]
	live := ok && cur == s && s.gen == gen
	if live {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	// Сессия могла завершиться, пересоздаться или перевзвестись (Touch)
	// между срабатыванием таймера и захватом мьютекса
	if !live {
		return
	}

	log.Printf("Сессия %s (чат %d, пользователь %d) удалена по таймауту", key.Plugin, key.ChatID, key.UserID)
	if r.onExpire != nil {
		r.onExpire(key)
	}
}
