package scheduler

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/ilokitv/botSTORE/internal/inventory"
	"github.com/ilokitv/botSTORE/internal/models"
)

// Status представляет доступность одного сервера инвентаря
type Status struct {
	Label  string
	Online bool
}

// VPSChecker представляет фоновую задачу периодической проверки доступности
// серверов. Результат кешируется и отдается меню без ожидания.
type VPSChecker struct {
	inv      *inventory.Source
	interval time.Duration // Интервал между проверками
	timeout  time.Duration // Таймаут одной TCP-пробы
	stop     chan struct{} // Канал для остановки проверок

	mu       sync.RWMutex
	statuses []Status
}

// NewVPSChecker создает новую проверку доступности серверов
func NewVPSChecker(inv *inventory.Source, interval time.Duration) *VPSChecker {
	return &VPSChecker{
		inv:      inv,
		interval: interval,
		timeout:  2 * time.Second,
		stop:     make(chan struct{}),
	}
}

// Start запускает фоновую задачу проверки доступности
func (c *VPSChecker) Start() {
	log.Println("Запуск фоновой задачи проверки доступности серверов")

	// Сразу запускаем первую проверку
	go c.checkAll()

	ticker := time.NewTicker(c.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				go c.checkAll()
			case <-c.stop:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop останавливает проверку доступности
func (c *VPSChecker) Stop() {
	log.Println("Остановка фоновой задачи проверки доступности серверов")
	close(c.stop)
}

// Statuses возвращает последние известные статусы серверов
func (c *VPSChecker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// checkAll проверяет все серверы инвентаря
func (c *VPSChecker) checkAll() {
	list, err := c.inv.VPSList()
	if err != nil {
		log.Printf("Проверка доступности пропущена: %v", err)
		c.mu.Lock()
		c.statuses = nil
		c.mu.Unlock()
		return
	}

	statuses := make([]Status, 0, len(list))
	for _, vps := range list {
		statuses = append(statuses, Status{Label: vps.Label(), Online: c.probe(vps)})
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// probe проверяет доступность SSH-порта сервера
func (c *VPSChecker) probe(vps models.VPS) bool {
	addr := fmt.Sprintf("%s:%d", vps.Host, vps.SSHPort())
	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
