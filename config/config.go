package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Webhook  WebhookConfig
	Links    LinksConfig
	Log      LogConfig
	Dev      DevConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Secure   bool
	From     string
	FromName string
	// Operator copy for internal notifications
	OperatorEmail string
}

type WebhookConfig struct {
	// Shared secret the intake form sends along with each lead payload
	Secret string
}

type LinksConfig struct {
	// Public legal pages referenced from confirmation mails
	TermsURL   string
	PrivacyURL string
	// Base URL of the customer-facing offer/booking frontend
	FrontendBaseURL string
}

type LogConfig struct {
	Level  string
	Format string
}

type DevConfig struct {
	AutoMigrate bool
	SeedData    bool
}

type CORSConfig struct {
	Origins     []string
	Credentials bool
}

var Cfg *Config

func Load() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			Name:       getEnv("DB_NAME", "fotobox_crm"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/database.db"),
		},
		SMTP: SMTPConfig{
			Host:          getEnv("SMTP_HOST", "localhost"),
			Port:          parseInt(getEnv("SMTP_PORT", "587")),
			User:          getEnv("SMTP_USER", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			Secure:        parseBool(getEnv("SMTP_SECURE", "false")),
			From:          getEnv("EMAIL_FROM", "buchung@mrknips.de"),
			FromName:      getEnv("EMAIL_FROM_NAME", "Mr. Knips"),
			OperatorEmail: getEnv("EMAIL_OPERATOR", ""),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Links: LinksConfig{
			TermsURL:        getEnv("TERMS_URL", "https://mrknips.de/allgemeine-geschaeftsbedingungen"),
			PrivacyURL:      getEnv("PRIVACY_URL", "https://mrknips.de/datenschutzerklaerung"),
			FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "https://buchung.mrknips.de"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Dev: DevConfig{
			AutoMigrate: parseBool(getEnv("AUTO_MIGRATE", "true")),
			SeedData:    parseBool(getEnv("SEED_DATA", "true")),
		},
		CORS: CORSConfig{
			Origins:     strings.Split(getEnv("CORS_ORIGINS", "https://buchung.mrknips.de,http://localhost:5173"), ","),
			Credentials: parseBool(getEnv("CORS_CREDENTIALS", "true")),
		},
	}

	Cfg = cfg
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host,
			c.Database.Port,
			c.Database.User,
			c.Database.Password,
			c.Database.Name,
			c.Database.SSLMode,
		)
	case "sqlite":
		return c.Database.SQLitePath
	default:
		return c.Database.SQLitePath
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
