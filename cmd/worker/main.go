package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/zk94007/osum-vsl/common"
	"github.com/zk94007/osum-vsl/config"
	"github.com/zk94007/osum-vsl/gentle"
	"github.com/zk94007/osum-vsl/googletts"
	"github.com/zk94007/osum-vsl/mediapipe"
	"github.com/zk94007/osum-vsl/openai"
	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/queue"
	"github.com/zk94007/osum-vsl/shared/shutterstock"
	"github.com/zk94007/osum-vsl/shared/store"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/xfs"
	"github.com/zk94007/osum-vsl/videorender"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	handlers, err := buildStageHandlers(ctx, jobStore)
	if err != nil {
		log.Fatalf("Failed to initialize stage handlers: %v", err)
	}

	var consumers []*queue.Consumer
	for stage, handler := range handlers {
		pool := config.StagePoolSize(string(stage))
		if pool == 0 {
			log.Printf("Stage %s disabled on this worker", stage)
			continue
		}
		for i := 0; i < pool; i++ {
			c, err := newStageConsumer(stage, coordinator, handler)
			if err != nil {
				log.Fatalf("Failed to create %s consumer: %v", stage, err)
			}
			if err := c.Start(ctx); err != nil {
				log.Fatalf("Failed to start %s consumer: %v", stage, err)
			}
			consumers = append(consumers, c)
		}
		log.Printf("Stage %s running with %d workers", stage, pool)
	}

	janitor := cron.New()
	if _, err := janitor.AddFunc(config.JanitorSchedule, func() {
		removed, err := xfs.PurgeOlderThan(config.TmpMaxAge)
		if err != nil {
			log.Printf("Scratch dir sweep failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("Removed %d orphaned scratch dirs", removed)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule janitor: %v", err)
	}
	janitor.Start()
	defer janitor.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down worker...")
	cancel()
	for _, c := range consumers {
		c.Close()
	}
}

func newStageConsumer(stage types.Stage, coordinator *servicepipe.Coordinator, handler servicepipe.Handler) (*queue.Consumer, error) {
	return queue.NewConsumer(queue.ConsumerConfig{
		Brokers: config.KafkaBrokers(),
		Stage:   stage,
		Handler: &queue.TypedMessageHandler[types.StageMessage]{
			Validate: func(msg *types.StageMessage) bool {
				return msg.JobID != "" && msg.PayloadRef != ""
			},
			Process: func(ctx context.Context, msg *types.StageMessage) error {
				return coordinator.Run(ctx, stage, msg, handler)
			},
			AlwaysMark: true,
		},
	})
}

// buildStageHandlers wires every stage's external clients. All clients are
// process-wide singletons created once at startup.
func buildStageHandlers(ctx context.Context, jobStore *store.Store) (map[types.Stage]servicepipe.Handler, error) {
	handlers := make(map[types.Stage]servicepipe.Handler)

	enhancer := servicepipe.NewEnhancerClient(
		config.Get("ENHANCER_URL", "http://localhost:8090/enhance"),
		config.Get("ENHANCER_USER", ""),
		config.Get("ENHANCER_PASSWORD", ""),
	)
	handlers[types.StageSSMLEnhancer] = servicepipe.NewSSMLEnhancerStage(enhancer).Handle

	synth, err := googletts.NewGoogleSynthesizer(ctx)
	if err != nil {
		return nil, err
	}
	handlers[types.StageGoogleTTS] = googletts.NewStage(synth, jobStore).Handle

	aligner := gentle.NewClient(config.Get("GENTLE_URL", "http://localhost:8765"))
	handlers[types.StageGentle] = gentle.NewStage(aligner, jobStore, config.GetInt("SUBTITLE_ROW_CAP", gentle.DefaultRowCap)).Handle

	llm := openai.NewCohereLLM(config.Get("COHERE_API_KEY", ""))
	stock := shutterstock.NewClient(
		config.Get("SHUTTERSTOCK_KEY", ""),
		config.Get("SHUTTERSTOCK_SECRET", ""),
	)
	catalog, err := openai.NewSheetCatalog(ctx,
		config.Get("VIDUX_SHEET_ID", ""),
		config.Get("VIDUX_SHEET_RANGE", "A:B"),
	)
	if err != nil {
		return nil, err
	}
	engine := openai.NewEngine(llm, stock, catalog)
	handlers[types.StageOpenAI] = openai.NewStage(engine, jobStore).Handle

	profiles, err := videorender.LoadProfiles(config.Get("RENDER_PROFILES_FILE", ""))
	if err != nil {
		return nil, err
	}

	tracker, err := mediapipe.NewGoogleTracker(ctx)
	if err != nil {
		return nil, err
	}
	reframer, err := mediapipe.NewAutoflipReframer()
	if err != nil {
		return nil, err
	}
	cropper := mediapipe.NewThumborCropper(config.Get("THUMBOR_URL", "http://localhost:8888"))
	handlers[types.StageMediaPipe] = mediapipe.NewStage(tracker, reframer, cropper, jobStore, profiles).Handle

	handlers[types.StageVideoRender] = videorender.NewStage(jobStore, profiles).Handle

	return handlers, nil
}
