package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	Env        string
	CORSOrigin string
	SiteURL    string
	StaticDir  string

	// Admin access
	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration

	// Backing store: firestore, sheets, postgres or memory
	StoreBackend  string
	DatabaseURL   string
	MigrationsDir string
	Firebase      FirebaseConfig
	Sheets        SheetsConfig

	// Snapshot cache
	GemelosCacheTTL time.Duration
	MarcasCacheTTL  time.Duration

	// Uploads
	UploadDir         string
	UploadRequireAuth bool
	ObjectStore       ObjectStoreConfig

	// Optional services
	RedisURL       string
	MeiliURL       string
	MeiliMasterKey string

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	ContactTo    string
}

type FirebaseConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	// CredentialsJSON takes precedence over the individual fields.
	CredentialsJSON string
}

func (c FirebaseConfig) Configured() bool {
	return c.ProjectID != "" && (c.CredentialsJSON != "" || (c.ClientEmail != "" && c.PrivateKey != ""))
}

type SheetsConfig struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	PrivateKey          string
	GemelosSheet        string
	MarcasSheet         string
}

func (c SheetsConfig) Configured() bool {
	return c.SpreadsheetID != "" && c.ServiceAccountEmail != "" && c.PrivateKey != ""
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
	Prefix    string
}

func (c ObjectStoreConfig) Configured() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

func Load() Config {
	return Config{
		Addr:       getenv("API_ADDR", ":8080"),
		Env:        getenv("APP_ENV", "development"),
		CORSOrigin: getenv("CORS_ORIGIN", "*"),
		SiteURL:    strings.TrimRight(getenv("SITE_URL", "https://tresde.site"), "/"),
		StaticDir:  getenv("STATIC_DIR", ""),

		// No default: an unset admin secret must never grant access.
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionTTL:        time.Duration(getenvInt("SESSION_TTL_SECONDS", 86400)) * time.Second,

		StoreBackend:  strings.ToLower(getenv("STORE_BACKEND", "firestore")),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("MIGRATIONS_DIR", ""), // empty uses the embedded migrations
		Firebase: FirebaseConfig{
			ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
			ClientEmail:     os.Getenv("FIREBASE_CLIENT_EMAIL"),
			PrivateKey:      unescapeKey(os.Getenv("FIREBASE_PRIVATE_KEY")),
			CredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:       os.Getenv("GOOGLE_SHEETS_ID"),
			ServiceAccountEmail: os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
			PrivateKey:          unescapeKey(os.Getenv("GOOGLE_PRIVATE_KEY")),
			GemelosSheet:        getenv("SHEETS_GEMELOS_SHEET", "Hoja 1"),
			MarcasSheet:         getenv("SHEETS_MARCAS_SHEET", "Marcas"),
		},

		GemelosCacheTTL: time.Duration(getenvInt("CACHE_GEMELOS_TTL_SECONDS", 30)) * time.Second,
		MarcasCacheTTL:  time.Duration(getenvInt("CACHE_MARCAS_TTL_SECONDS", 300)) * time.Second,

		UploadDir:         getenv("UPLOAD_DIR", "./public/marcas"),
		UploadRequireAuth: getenvBool("UPLOAD_REQUIRE_AUTH", true),
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
			AccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
			SecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
			Bucket:    os.Getenv("OBJECT_STORE_BUCKET"),
			PublicURL: strings.TrimRight(os.Getenv("OBJECT_STORE_PUBLIC_URL"), "/"),
			UseSSL:    getenvBool("OBJECT_STORE_USE_SSL", true),
			Prefix:    getenv("OBJECT_STORE_PREFIX", "tresde-portfolio/marcas"),
		},

		// Redis and Meilisearch are optional; empty disables them.
		RedisURL:       getenv("REDIS_URL", ""),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		// SMTP - empty by default, contact form disabled if not configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "TresDe"),
		ContactTo:    getenv("CONTACT_TO", ""),
	}
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Private keys pasted into env files usually carry literal \n sequences.
func unescapeKey(value string) string {
	return strings.ReplaceAll(value, `\n`, "\n")
}
