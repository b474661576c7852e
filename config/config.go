package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds everything read from the environment at startup
type AppConfig struct {
	Port string

	// Persistence: "memory", "redis" or "mongo"
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string

	// Object storage: "local" or "s3"
	ObjectBackend string
	LocalDir      string
	S3Bucket      string
	S3Prefix      string
	S3Region      string
	S3Profile     string
	S3PathStyle   bool

	// Speech provider
	SpeechAPIKey   string
	SpeechBaseURL  string
	SpeechModel    string
	NarratorVoice  string
	SpeechInterval time.Duration

	// Kafka (optional; empty brokers disables it)
	KafkaBrokers     []string
	KafkaJobsTopic   string
	KafkaEventsTopic string
	KafkaGroupID     string

	// Rendering
	FFmpegPath     string
	WorkDir        string
	RenderWorkers  int
	SegmentTimeout time.Duration
	ConcatTimeout  time.Duration

	// Maintenance
	SweepSchedule string
	WorkDirMaxAge time.Duration
	CancelPoll    time.Duration
}

// FromEnv builds the configuration from environment variables, applying defaults
func FromEnv() AppConfig {
	return AppConfig{
		Port: getEnv("PORT", "8080"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "comicreel"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "comicreel"),

		ObjectBackend: strings.ToLower(getEnv("OBJECT_BACKEND", "local")),
		LocalDir:      getEnv("LOCAL_STORAGE_DIR", "data"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Prefix:      os.Getenv("S3_PREFIX"),
		S3Region:      os.Getenv("AWS_REGION"),
		S3Profile:     os.Getenv("AWS_PROFILE"),
		S3PathStyle:   getEnvBool("S3_PATH_STYLE", false),

		SpeechAPIKey:   os.Getenv("ELEVENLABS_API_KEY"),
		SpeechBaseURL:  getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		SpeechModel:    getEnv("ELEVENLABS_MODEL", DefaultSpeechModel),
		NarratorVoice:  os.Getenv("NARRATOR_VOICE_ID"),
		SpeechInterval: getEnvDuration("SPEECH_INTERVAL", SpeechInterval),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaJobsTopic:   getEnv("KAFKA_JOBS_TOPIC", "comicreel.jobs"),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "comicreel.events"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "comicreel-worker"),

		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:        getEnv("WORK_DIR", os.TempDir()),
		RenderWorkers:  getEnvInt("RENDER_WORKERS", MaxConcurrentSegments),
		SegmentTimeout: getEnvDuration("SEGMENT_TIMEOUT", SegmentTimeout),
		ConcatTimeout:  getEnvDuration("CONCAT_TIMEOUT", ConcatTimeout),

		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),
		WorkDirMaxAge: getEnvDuration("WORKDIR_MAX_AGE", 24*time.Hour),
		CancelPoll:    getEnvDuration("CANCEL_POLL_INTERVAL", CancelPollInterval),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
