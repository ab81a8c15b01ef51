package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zk94007/osum-vsl/api"
	"github.com/zk94007/osum-vsl/common"
	"github.com/zk94007/osum-vsl/config"
	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/queue"
	"github.com/zk94007/osum-vsl/shared/store"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	ctx := context.Background()

	s3Client, err := common.NewS3(ctx, common.S3Config{
		Region:        config.Get("S3_REGION", ""),
		UsePathStyle:  config.GetInt("S3_PATH_STYLE", 0) == 1,
		PublicBaseURL: config.Get("S3_PUBLIC_BASE_URL", ""),
	})
	if err != nil {
		log.Fatalf("Failed to initialize S3: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Get("REDIS_ADDR", "localhost:6379"),
		Password: config.Get("REDIS_PASSWORD", ""),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	jobStore := store.New(rdb, s3Client, config.Get("S3_BUCKET", "osum-vsl"))

	producer, err := queue.NewProducer(config.KafkaBrokers())
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	coordinator := servicepipe.NewCoordinator(jobStore, producer)

	addr := ":" + config.Get("PORT", "8080")
	r := api.NewRouter(coordinator, jobStore)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/jobs")
	log.Println("  GET  /api/jobs/:id/status")
	log.Println("  POST /api/jobs/:id/cancel")

	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
