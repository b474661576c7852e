package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"comicreel/api"
	"comicreel/audio"
	"comicreel/config"
	"comicreel/director"
	"comicreel/events"
	"comicreel/media"
	"comicreel/pipeline"
	"comicreel/render"
	"comicreel/storage"
	"comicreel/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	cfg := config.FromEnv()

	mode := flag.String("mode", "all", "what to run: server, worker or all")
	presetsPath := flag.String("presets", "", "YAML file overriding the built-in director presets")
	addr := flag.String("addr", ":"+cfg.Port, "HTTP listen address")
	flag.Parse()

	runServer := *mode == "server" || *mode == "all"
	runWorker := *mode == "worker" || *mode == "all"
	if !runServer && !runWorker {
		log.Fatalf("unknown mode %q (want server, worker or all)", *mode)
	}

	presets := config.DefaultPresets()
	if *presetsPath != "" {
		p, err := config.LoadPresets(*presetsPath)
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		presets = p
	}

	ctx := context.Background()

	records, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	objects, err := openObjects(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open object storage: %v", err)
	}

	runner := media.NewExec(cfg.FFmpegPath)
	prober := media.FFProbe{Timeout: 30 * time.Second}
	if cfg.SpeechAPIKey == "" {
		log.Println("ELEVENLABS_API_KEY not set; narration requests will fail")
	}
	speech := audio.NewElevenLabs(cfg.SpeechAPIKey, cfg.SpeechBaseURL, cfg.SpeechModel, config.SpeechTimeout)
	generator := audio.NewGenerator(speech, objects, runner, prober, presets.Voices, audio.GeneratorConfig{
		Interval:   cfg.SpeechInterval,
		MaxRetries: config.SpeechMaxRetries,
		WorkDir:    cfg.WorkDir,
	})
	engine := render.NewEngine(runner, objects, render.Config{
		WorkDir:        cfg.WorkDir,
		Workers:        cfg.RenderWorkers,
		SegmentTimeout: cfg.SegmentTimeout,
		ConcatTimeout:  cfg.ConcatTimeout,
	})

	deps := pipeline.Deps{
		Store:    records,
		Objects:  objects,
		Audio:    generator,
		Renderer: engine,
		Director: director.New(presets),

		CancelPoll: cfg.CancelPoll,
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		if err != nil {
			log.Printf("Status events disabled: %v", err)
		} else {
			deps.Notifier = producer
		}
	}

	svc := pipeline.New(deps)

	var consumer *events.Consumer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if runWorker && len(cfg.KafkaBrokers) > 0 {
		consumer, err = events.NewConsumer(events.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaJobsTopic,
			GroupID: cfg.KafkaGroupID,
			Handler: events.NewJobHandler(svc),
		})
		if err != nil {
			log.Printf("Failed to create Kafka consumer: %v", err)
		} else if err := consumer.Start(consumerCtx); err != nil {
			log.Printf("Failed to start Kafka consumer: %v", err)
		}
	} else if runWorker {
		log.Println("KAFKA_BROKERS not set; worker only serves jobs started over HTTP")
	}

	sweeper := pipeline.NewSweeper(cfg.WorkDirMaxAge, engine.RenderRoot(), filepath.Join(cfg.WorkDir, "audio"))
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}

	var server *api.Server
	if runServer {
		server = api.NewServer(*addr, api.NewRouter(svc, objects))
		server.Start()
	}

	fmt.Printf("Comic reel service (%s)\n", *mode)
	fmt.Printf("   Store:    %s\n", cfg.StoreBackend)
	fmt.Printf("   Objects:  %s\n", cfg.ObjectBackend)
	if server != nil {
		fmt.Printf("   API:      http://0.0.0.0%s\n", *addr)
	}
	if consumer != nil {
		fmt.Printf("   Jobs:     %s (group %s)\n", cfg.KafkaJobsTopic, cfg.KafkaGroupID)
	}
	fmt.Println("\nPress Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
	stopConsumer()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Printf("Kafka consumer close error: %v", err)
		}
	}
	if err := svc.Close(shutdownCtx); err != nil {
		log.Printf("Pipeline shutdown error: %v", err)
	}
	sweeper.Stop()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("Kafka producer close error: %v", err)
		}
	}
	if err := records.Close(shutdownCtx); err != nil {
		log.Printf("Store close error: %v", err)
	}
	fmt.Println("Server stopped")
}

func openStore(ctx context.Context, cfg config.AppConfig) (*store.Records, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Println("Using in-memory store; projects are lost on restart")
		return store.New(store.NewMemory()), nil
	case "redis":
		b, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("Using Redis store at %s", cfg.RedisAddr)
		return store.New(b), nil
	case "mongo":
		b, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Printf("Using MongoDB store (database %s)", cfg.MongoDatabase)
		return store.New(b), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func openObjects(ctx context.Context, cfg config.AppConfig) (storage.ObjectStore, error) {
	switch cfg.ObjectBackend {
	case "local":
		return storage.NewLocal(cfg.LocalDir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3PathStyle,
		})
	}
	return nil, fmt.Errorf("unknown OBJECT_BACKEND %q", cfg.ObjectBackend)
}
