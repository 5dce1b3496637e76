package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ilokitv/botSTORE/internal/config"
	"github.com/ilokitv/botSTORE/internal/models"
)

// ErrUnavailable возвращается, когда файл инвентаря отсутствует,
// пуст или не читается
var ErrUnavailable = errors.New("data VPS kosong/tidak valid")

// Source отдает каталог серверов и таблицу тарифов из JSON-файлов.
// Файлы читаются при каждом обращении, поэтому их можно править на лету.
type Source struct {
	vpsFile     string
	priceFile   string
	defaultRate int64
}

// New создает новый источник инвентаря
func New(cfg *config.InventoryConfig, defaultRate int64) *Source {
	return &Source{
		vpsFile:     cfg.VPSFile,
		priceFile:   cfg.PriceFile,
		defaultRate: defaultRate,
	}
}

// VPSList возвращает список целевых серверов
func (s *Source) VPSList() ([]models.VPS, error) {
	data, err := os.ReadFile(s.vpsFile)
	if err != nil {
		log.Printf("Не удалось прочитать файл инвентаря %s: %v", s.vpsFile, err)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, s.vpsFile)
	}

	var list []models.VPS
	if err := json.Unmarshal(data, &list); err != nil {
		log.Printf("Некорректный файл инвентаря %s: %v", s.vpsFile, err)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, s.vpsFile)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, s.vpsFile)
	}
	return list, nil
}

// RatePerDay возвращает тариф плагина из таблицы цен.
// Отсутствующая таблица или запись дает тариф по умолчанию.
func (s *Source) RatePerDay(plugin string) int64 {
	data, err := os.ReadFile(s.priceFile)
	if err != nil {
		return s.defaultRate
	}

	var prices map[string]int64
	if err := json.Unmarshal(data, &prices); err != nil {
		log.Printf("Некорректная таблица цен %s: %v", s.priceFile, err)
		return s.defaultRate
	}

	if rate, ok := prices[plugin]; ok && rate > 0 {
		return rate
	}
	return s.defaultRate
}
