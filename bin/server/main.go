package main

import (
	"context"
	"flag"
	"log"
	"os"
	"pagematch/internal/runnable"
	"pagematch/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var storageBackend string
	var debug bool
	flag.StringVar(&storageBackend, "storage-backend", envOrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.BoolVar(&debug, "debug", false, "Enable debug routes and text logging")

	flag.Parse()

	runnable.Debug = debug

	ctx := context.Background()

	var s storage.Storage
	var err error
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: envOrDefault("DIRECTORY", "/tmp"),
		})
		if err != nil {
			log.Fatalf("failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	if err := runnable.NewServer(s).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
