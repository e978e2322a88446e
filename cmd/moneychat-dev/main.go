// moneychat-dev runs the bundled development backend: a sqlite-backed
// emulation of the production chat, expense, tag, and parsing endpoints.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/lekos21/moneychat/internal/config"
	"github.com/lekos21/moneychat/internal/devserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DevServer.DBPath), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	db, err := devserver.OpenDB(cfg.DevServer.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := devserver.RunMigrations(db, "internal/devserver/migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	srv := devserver.NewServer(devserver.NewStore(db), cfg.DevServer.Token)
	log.Printf("moneychat dev backend listening on %s (db: %s)", cfg.DevServer.Addr, cfg.DevServer.DBPath)
	if err := srv.Listen(cfg.DevServer.Addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
