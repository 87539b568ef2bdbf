package main

import (
	"log"
	"os"
	"time"

	"identityapi/internal/config"
	"identityapi/internal/database"
	"identityapi/internal/server"
	"identityapi/internal/token"
	"identityapi/internal/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.ValidateJWTSecret(); err != nil {
		log.Fatal("JWT configuration error: ", err)
	}

	requiredEnvVars := map[string]string{
		"DB_HOST":     os.Getenv("DB_HOST"),
		"DB_NAME":     os.Getenv("DB_NAME"),
		"DB_USER":     os.Getenv("DB_USER"),
		"DB_PASSWORD": os.Getenv("DB_PASSWORD"),
	}

	for key, value := range requiredEnvVars {
		if value == "" {
			log.Fatalf("Required environment variable %s is not set", key)
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Database connection failed: ", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed: ", err)
	}

	// Partial unique indexes on users live in raw SQL; without them the
	// "unique among non-deleted" invariant only holds at the handler level.
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("SQL migrations failed: ", err)
	}

	if err := utils.InitLocalStorage(); err != nil {
		log.Fatal("Failed to initialize local storage: ", err)
	}

	if os.Getenv("USE_S3") == "true" {
		if cfg.S3Bucket != "" && cfg.S3Region != "" {
			if err := utils.InitS3(cfg.S3Bucket, cfg.S3Region, cfg.CloudFrontURL); err != nil {
				log.Println("S3 initialization failed, falling back to local storage:", err)
				utils.SetStorageMode(true)
			}
		} else {
			log.Println("USE_S3=true but S3_BUCKET or S3_REGION not configured, using local storage")
		}
	} else {
		utils.SetStorageMode(true)
	}

	tokens := token.NewRepository(db)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			deleted, err := tokens.DeleteExpired()
			if err != nil {
				log.Println("Failed to clean up expired tokens:", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Cleaned up %d expired tokens", deleted)
			}
		}
	}()

	app := server.New(db, cfg)

	log.Printf("Identity API starting on %s", cfg.ServerAddr)
	log.Printf("Storage mode: %s", utils.GetStorageMode())

	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
