// Command seed hydrates one fresh source, named by -table, from the badger
// snapshot at the configured snapshot path when -driver is empty, or from
// a live Postgres/MySQL table when -driver (and the required -dsn) is
// given, before a pipeline built on top of it goes live.
package main

import (
	"database/sql"
	"flag"
	"log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/kasuganosora/ivmsync/internal/config"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
	"github.com/kasuganosora/ivmsync/internal/loader"
	"github.com/kasuganosora/ivmsync/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to config.json")
	driver := flag.String("driver", "", "postgres or mysql; empty uses the badger snapshot")
	dsn := flag.String("dsn", "", "database DSN, required when -driver is set")
	table := flag.String("table", "issues", "table name to hydrate")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	src, err := source.New(source.Schema{
		Name:       *table,
		Columns:    []row.Column{{Name: "id"}, {Name: "title"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	if err != nil {
		log.Fatalf("create source: %v", err)
	}

	if *driver == "" {
		store, err := snapshot.OpenBadgerStore(cfg.Hydration.SnapshotPath, *table)
		if err != nil {
			log.Fatalf("open snapshot store: %v", err)
		}
		defer store.Close()
		if err := store.Hydrate(src); err != nil {
			log.Fatalf("hydrate from snapshot: %v", err)
		}
		log.Printf("hydrated %q from snapshot %s", *table, cfg.Hydration.SnapshotPath)
		return
	}

	if *dsn == "" {
		log.Fatalf("-dsn is required when -driver is set")
	}
	db, err := sql.Open(*driver, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := loader.NewTableLoader(db, *table).Hydrate(src); err != nil {
		log.Fatalf("hydrate from %s: %v", *driver, err)
	}
	log.Printf("hydrated %q from %s", *table, *driver)
}
