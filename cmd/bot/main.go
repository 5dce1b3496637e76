package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/ilokitv/botSTORE/internal/config"
	"github.com/ilokitv/botSTORE/internal/handlers"
	"github.com/ilokitv/botSTORE/internal/inventory"
	"github.com/ilokitv/botSTORE/internal/plugin"
	"github.com/ilokitv/botSTORE/internal/scheduler"
	"github.com/ilokitv/botSTORE/internal/session"
	"github.com/ilokitv/botSTORE/internal/sshx"
	"github.com/ilokitv/botSTORE/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	// .env опционален, переменные окружения перекрывают yaml
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	store, err := wallet.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer store.Close()

	if err := store.InitTables(); err != nil {
		log.Fatalf("Ошибка инициализации таблиц: %v", err)
	}
	log.Println("База данных успешно инициализирована")

	inv := inventory.New(&cfg.Inventory, cfg.Pricing.DefaultRatePerDay)
	exec := sshx.NewExecutor()

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatalf("Ошибка создания бота: %v", err)
	}
	log.Printf("Авторизован как @%s", bot.Self.UserName)

	resp := handlers.NewResponder(bot)
	sessions := session.NewRegistry(session.DefaultTTL, func(k session.Key) {
		resp.Send(k.ChatID, "⏳ Sesi dihapus karena tidak ada input 1 menit.")
	})

	deps := &plugin.Deps{
		Wallet:    store,
		Inventory: inv,
		Exec:      exec,
		Sessions:  sessions,
		IsOwner:   cfg.IsOwner,
	}

	plugins := buildPlugins(cfg, inv, deps)

	checker := scheduler.NewVPSChecker(inv, 5*time.Minute)
	checker.Start()
	defer checker.Stop()

	handler := handlers.NewBotHandler(bot, store, cfg, checker, sessions, plugins)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Бот запущен и ожидает сообщений")
	for {
		select {
		case update := <-updates:
			handler.HandleUpdate(update)
		case sig := <-sigCh:
			log.Printf("Получен сигнал %v, завершение работы", sig)
			bot.StopReceivingUpdates()
			return
		}
	}
}

// buildPlugins собирает полный набор сервисов магазина
func buildPlugins(cfg *config.Config, inv *inventory.Source, deps *plugin.Deps) []plugin.Plugin {
	renewValidators := map[string]func(string) error{
		"ssh":    plugin.PasswdValidator(cfg.Registry.PasswdFile),
		"vmess":  plugin.XrayValidator(cfg.Registry.XrayFile, "vmess"),
		"vless":  plugin.XrayValidator(cfg.Registry.XrayFile, "vless"),
		"trojan": plugin.XrayValidator(cfg.Registry.XrayFile, "trojan"),
	}

	var plugins []plugin.Plugin

	// Продление по отдельным протоколам, цена из harga.json
	type renewDef struct {
		name, alias, title, tpl, proto string
	}
	for _, d := range []renewDef{
		{"renewssh", "rnssh", "RENEW SSH", "/usr/local/sbin/bot-extssh {USER} {EXP}", "ssh"},
		{"renewvmess", "rnvmess", "RENEW VMESS", "/usr/local/sbin/bot-extws {USER} {EXP}", "vmess"},
		{"renewvless", "rnvless", "RENEW VLESS", "/usr/local/sbin/bot-extvl {USER} {EXP}", "vless"},
		{"renewtrojan", "rntrojan", "RENEW TROJAN", "/usr/local/sbin/bot-exttr {USER} {EXP}", "trojan"},
	} {
		d := d
		plugins = append(plugins, plugin.NewPurchase(plugin.PurchaseSpec{
			Name:       d.name,
			Aliases:    []string{d.alias},
			Title:      d.title,
			Kind:       "renew-" + d.proto,
			CommandTpl: d.tpl,
			ExpMode:    "days",
			RatePerDay: func() int64 { return inv.RatePerDay(d.name) },
			Validate:   renewValidators[d.proto],
		}, deps))
	}

	// Создание новых аккаунтов, фиксированная базовая цена
	type addDef struct {
		name, alias, title, tpl, proto string
	}
	for _, d := range []addDef{
		{"addssh", "newssh", "ADD SSH", "/usr/local/sbin/bot-addssh {USER} {EXP}", "ssh"},
		{"addvmess", "newvmess", "ADD VMESS", "/usr/local/sbin/bot-addws {USER} {EXP}", "vmess"},
		{"addvless", "newvless", "ADD VLESS", "/usr/local/sbin/bot-addvl {USER} {EXP}", "vless"},
		{"addtrojan", "newtrojan", "ADD TROJAN", "/usr/local/sbin/bot-addtr {USER} {EXP}", "trojan"},
	} {
		plugins = append(plugins, plugin.NewPurchase(plugin.PurchaseSpec{
			Name:       d.name,
			Aliases:    []string{d.alias},
			Title:      d.title,
			Kind:       "add-" + d.proto,
			CommandTpl: d.tpl,
			ExpMode:    "days",
			RatePerDay: func() int64 { return cfg.Pricing.DefaultRatePerDay },
		}, deps))
	}

	// Бесплатные trial-аккаунты с суточной квотой
	type trialDef struct {
		name, alias, title, tpl, proto string
	}
	for _, d := range []trialDef{
		{"trialssh", "trssh", "TRIAL SSH", "/usr/local/sbin/bot-trialssh {MIN}", "ssh"},
		{"trialvmess", "trvmess", "TRIAL VMESS", "/usr/local/sbin/bot-trialws {MIN}", "vmess"},
		{"trialvless", "trvless", "TRIAL VLESS", "/usr/local/sbin/bot-trialvl {MIN}", "vless"},
		{"trialtrojan", "trtrojan", "TRIAL TROJAN", "/usr/local/sbin/bot-trialtr {MIN}", "trojan"},
	} {
		plugins = append(plugins, plugin.NewTrial(plugin.TrialSpec{
			Name:       d.name,
			Aliases:    []string{d.alias},
			Title:      d.title,
			Kind:       "trial-" + d.proto,
			CommandTpl: d.tpl,
			Minutes:    cfg.Trial.Minutes,
			DailyLimit: cfg.Trial.DailyLimit,
		}, deps))
	}

	// Единое продление для всех протоколов через кнопки
	plugins = append(plugins, plugin.NewMaster(plugin.MasterSpec{
		Name:       "renew",
		Aliases:    []string{"perpanjang"},
		Title:      "RENEW AKUN",
		KindPrefix: "renew",
		CommandTpls: map[string]string{
			"ssh":    "/usr/local/sbin/bot-extssh {USER} {EXP}",
			"vmess":  "/usr/local/sbin/bot-extws {USER} {EXP}",
			"vless":  "/usr/local/sbin/bot-extvl {USER} {EXP}",
			"trojan": "/usr/local/sbin/bot-exttr {USER} {EXP}",
		},
		ExpMode:    "days",
		RatePerDay: cfg.Pricing.RenewRatePerDay,
		Validate:   plugin.MasterValidator(cfg.Registry.PasswdFile, cfg.Registry.XrayFile),
	}, deps))

	// Ручное пополнение через подтверждение владельца
	plugins = append(plugins, plugin.NewTopup(plugin.TopupSpec{
		Name:     "topupmanual",
		Aliases:  []string{"topup"},
		Title:    "TOPUP MANUAL",
		OwnerIDs: cfg.Bot.OwnerIDs,
	}, deps))

	return plugins
}
