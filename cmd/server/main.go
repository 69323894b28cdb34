package main

import (
	"log"
	"time"

	"partsadmin/internal/catalog"
	"partsadmin/internal/config"
	mydb "partsadmin/internal/db"
	"partsadmin/internal/preview"
	"partsadmin/internal/productform"
	"partsadmin/internal/web"
)

const janitorEvery = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	messages, err := productform.LoadMessages(cfg.Locale)
	if err != nil {
		log.Fatal(err)
	}
	policy, err := productform.ParsePolicy(cfg.SubmitPolicy)
	if err != nil {
		log.Fatal(err)
	}

	// preview ledger: postgres when configured, memory otherwise
	var ledger preview.Ledger = preview.NewMemoryLedger()
	var health func() error
	if cfg.DBDSN != "" {
		db, err := mydb.Open(cfg.DBDSN)
		if err != nil {
			log.Fatal(err)
		}
		gl, err := preview.NewGormLedger(db)
		if err != nil {
			log.Fatal(err)
		}
		ledger = gl
		sqlDB, _ := db.DB()
		defer sqlDB.Close()
		health = sqlDB.Ping
	} else {
		log.Println("WARN: DB_DSN empty; preview ledger kept in memory")
	}

	previews, err := preview.NewStore(cfg.PreviewDir, ledger)
	if err != nil {
		log.Fatal(err)
	}
	if n, err := previews.Sweep(cfg.PreviewMaxAge, nil); err != nil {
		log.Println("WARN: preview sweep:", err)
	} else if n > 0 {
		log.Printf("swept %d stale previews", n)
	}

	api := catalog.New(cfg.APIBaseURL, catalog.WithToken(cfg.APIToken))
	srv := web.NewServer(api, previews, web.Options{
		Messages:      messages,
		Policy:        policy,
		SavedDelay:    cfg.SavedDelay,
		SessionSecret: cfg.SessionSecret,
		Health:        health,
	})

	go func() {
		ticker := time.NewTicker(janitorEvery)
		defer ticker.Stop()
		for range ticker.C {
			if n := srv.Forms().SweepIdle(cfg.FormIdleTimeout); n > 0 {
				log.Printf("closed %d idle forms", n)
			}
			if _, err := previews.Sweep(cfg.PreviewMaxAge, srv.Forms().LivePreviews()); err != nil {
				log.Println("WARN: preview sweep:", err)
			}
		}
	}()

	log.Printf("Server listening on :%s (api %s)", cfg.Port, cfg.APIBaseURL)
	log.Fatal(srv.Router().Run(":" + cfg.Port))
}
