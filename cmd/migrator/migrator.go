package main

import (
	"flag"
	"os"

	"github.com/NordCoder/Quill/internal/obs"
	"github.com/NordCoder/Quill/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := flag.String("cmd", "up", "goose command: up, down, status, reset")
	flag.Parse()

	log, err := obs.NewLogger(obs.LogConfig{Level: "info", Service: "quill-migrator"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is empty")
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	switch *cmd {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		log.Fatal("unknown command", zap.String("cmd", *cmd))
	}
	if err != nil {
		log.Fatal("migrate", zap.String("cmd", *cmd), zap.Error(err))
	}
	log.Info("migrations ok", zap.String("cmd", *cmd))
}
