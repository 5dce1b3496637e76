package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config содержит настройки всего приложения
type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Database  DatabaseConfig  `yaml:"database"`
	Inventory InventoryConfig `yaml:"inventory"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Trial     TrialConfig     `yaml:"trial"`
	Registry  RegistryConfig  `yaml:"registry"`
}

// BotConfig содержит настройки Telegram бота
type BotConfig struct {
	Token    string  `yaml:"token"`
	OwnerIDs []int64 `yaml:"owner_ids"`
}

// DatabaseConfig содержит настройки базы данных.
// Driver "postgres" используется в основном варианте, "sqlite" для установки на одном хосте.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // путь к файлу для sqlite
}

// InventoryConfig содержит пути к файлам инвентаря (только для чтения)
type InventoryConfig struct {
	VPSFile   string `yaml:"vps_file"`
	PriceFile string `yaml:"price_file"`
}

// PricingConfig содержит тарифы по умолчанию (целые единицы валюты в день)
type PricingConfig struct {
	DefaultRatePerDay int64 `yaml:"default_rate_per_day"`
	RenewRatePerDay   int64 `yaml:"renew_rate_per_day"`
}

// TrialConfig содержит политику бесплатных trial-аккаунтов
type TrialConfig struct {
	DailyLimit int `yaml:"daily_limit"`
	Minutes    int `yaml:"minutes"`
}

// RegistryConfig содержит пути к реестрам аккаунтов для валидации username
type RegistryConfig struct {
	PasswdFile string `yaml:"passwd_file"`
	XrayFile   string `yaml:"xray_file"`
}

// DriverName возвращает имя драйвера database/sql
func (dc *DatabaseConfig) DriverName() string {
	if dc.Driver == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

// ConnectionString возвращает строку подключения к базе данных
func (dc *DatabaseConfig) ConnectionString() string {
	if dc.Driver == "sqlite" {
		if dc.Path == "" {
			return "julak/wallet.db"
		}
		return dc.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dc.Host, dc.Port, dc.User, dc.Password, dc.DBName, dc.SSLMode)
}

// Load загружает конфигурацию из файла и применяет значения по умолчанию
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error reading config file: %v", err)
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		log.Printf("Error unmarshaling config: %v", err)
		return nil, err
	}

	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

// applyDefaults заполняет незаданные поля значениями по умолчанию
func (c *Config) applyDefaults() {
	if c.Inventory.VPSFile == "" {
		c.Inventory.VPSFile = "julak/vps.json"
	}
	if c.Inventory.PriceFile == "" {
		c.Inventory.PriceFile = "julak/harga.json"
	}
	if c.Pricing.DefaultRatePerDay <= 0 {
		c.Pricing.DefaultRatePerDay = 1000
	}
	if c.Pricing.RenewRatePerDay <= 0 {
		c.Pricing.RenewRatePerDay = 200
	}
	if c.Trial.DailyLimit <= 0 {
		c.Trial.DailyLimit = 2
	}
	if c.Trial.Minutes <= 0 {
		c.Trial.Minutes = 60
	}
	if c.Registry.PasswdFile == "" {
		c.Registry.PasswdFile = "/etc/passwd"
	}
	if c.Registry.XrayFile == "" {
		c.Registry.XrayFile = "/etc/xray/config.json"
	}
}

// applyEnv применяет переменные окружения поверх файла конфигурации
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("ADMIN_TG_ID"); v != "" {
		ids := make([]int64, 0, 4)
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				log.Printf("Некорректный ADMIN_TG_ID %q: %v", part, err)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			c.Bot.OwnerIDs = ids
		}
	}
	if v := os.Getenv("TRIAL_LIMIT_PER_DAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Trial.DailyLimit = n
		}
	}
	if v := os.Getenv("HARGA_PER_HARI"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Pricing.DefaultRatePerDay = n
		}
	}
}

// IsOwner проверяет, входит ли пользователь в список владельцев
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Bot.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
