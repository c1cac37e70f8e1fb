package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	StoreBackend string // "mysql" or "memory"
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name

	JWTSecret      string   // secret used to sign JWTs
	AccessTTLMin   int      // access token time-to-live in minutes
	RefreshTTLDays int      // refresh token time-to-live in days
	BcryptCost     int      // bcrypt cost for password hashing
	AdminEmails    []string // addresses that sign up as administrators

	RabbitURL       string // AMQP broker; empty disables booking events
	ConsumerEnabled bool   // run the booking audit consumer in-process
	AuditLogDir     string // directory of booking.log

	BlobBackend   string        // "local" or "s3"
	BlobLocalPath string        // root directory of the local blob store
	PublicBaseURL string        // external base URL used in local blob links
	S3Bucket      string        // bucket of the s3 blob store
	AWSRegion     string        // region of the s3 blob store
	S3Endpoint    string        // optional S3 compatible endpoint
	PresignTTL    time.Duration // lifetime of presigned download URLs

	LogLevel string // debug, info, warn or error
	LogFile  string // optional file receiving a copy of the log

	SweeperEnabled  bool   // release expired reservations periodically
	SweeperSchedule string // cron spec of the sweeper
}

// Load reads an optional .env file and the environment and returns a
// Config.  Required variables are enforced by must(); missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	cfg := Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		StoreBackend: getenv("STORE_BACKEND", "mysql"),
		DBPass:       os.Getenv("DB_PASS"),

		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		AdminEmails:    envList("ADMIN_EMAILS"),

		RabbitURL:       getenv("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumerEnabled: envBool("CONSUMER_ENABLED", false),
		AuditLogDir:     getenv("AUDIT_LOG_DIR", "logs"),

		BlobBackend:   getenv("BLOB_BACKEND", "local"),
		BlobLocalPath: getenv("BLOB_LOCAL_PATH", "data/blobs"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", ""),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		AWSRegion:     getenv("AWS_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		PresignTTL:    envDur("S3_PRESIGN_TTL", 15*time.Minute),

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		SweeperEnabled:  envBool("SWEEPER_ENABLED", false),
		SweeperSchedule: getenv("SWEEPER_SCHEDULE", "@every 1m"),
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	switch cfg.StoreBackend {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "memory":
	default:
		log.Fatalf("invalid STORE_BACKEND: %q", cfg.StoreBackend)
	}
	switch cfg.BlobBackend {
	case "local":
	case "s3":
		cfg.S3Bucket = must("S3_BUCKET")
	default:
		log.Fatalf("invalid BLOB_BACKEND: %q", cfg.BlobBackend)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
