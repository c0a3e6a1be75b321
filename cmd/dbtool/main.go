package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/config"
	"route-planning-service/internal/platform/db"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/network.json"), "warehouse and vehicle seed file")
	skipSeed := flag.Bool("schema-only", false, "create the schema without seeding")
	flag.Parse()

	conn, dialect, err := open()
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()

	log.Printf("Initializing database schema dialect=%s...", dialect)
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *skipSeed {
		return
	}

	log.Printf("Seeding database from %s...", *seedPath)
	if err := repositories.SeedFromJSON(ctx, conn, dialect, *seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}

func open() (*sql.DB, db.Dialect, error) {
	if url := config.Get("DATABASE_URL", ""); url != "" {
		conn, err := db.Open(url)
		return conn, db.Postgres, err
	}
	conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
	return conn, db.SQLite, err
}
