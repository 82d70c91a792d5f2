package main

import (
	"context"
	"log"

	"github.com/maroonlid/Tutunovka-HSE/internal/bot"
	"github.com/maroonlid/Tutunovka-HSE/internal/config"
	"github.com/maroonlid/Tutunovka-HSE/internal/db"
	"github.com/maroonlid/Tutunovka-HSE/internal/link"
	"github.com/maroonlid/Tutunovka-HSE/internal/reminder"
	"github.com/maroonlid/Tutunovka-HSE/internal/route"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg := config.Load()

	pg, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pg.Close()

	rdb := db.ConnectRedis(cfg)

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("bot init failed: %v", err)
	}
	log.Printf("bot %s started", api.Self.UserName)

	links := link.NewService(cfg.JWTSecret, pg)
	routes := route.NewService(pg)
	b := bot.New(api, links, routes)

	ctx := context.Background()

	scanner := reminder.NewScanner(pg, rdb, b, cfg.ReminderHour)
	go scanner.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	for update := range api.GetUpdatesChan(u) {
		b.HandleUpdate(ctx, update)
	}
}
