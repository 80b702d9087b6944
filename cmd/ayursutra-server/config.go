package main

import "github.com/caarlos0/env/v10"

// Config centralizes the server configuration.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// Provider mode. When IdentityBaseURL is set the server talks to a
	// hosted identity provider; otherwise it runs the local demo mode.
	IdentityBaseURL string `env:"IDENTITY_BASE_URL"`
	IdentityAPIKey  string `env:"IDENTITY_API_KEY"`
	CodeServiceURL  string `env:"CODE_SERVICE_URL"`

	JWTSecret string `env:"JWT_SECRET"`

	SQLitePath  string `env:"SQLITE_PATH" envDefault:"ayursutra.db"`
	SessionPath string `env:"SESSION_PATH"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"AyurSutra"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	GoogleClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"OAUTH2_GOOGLE_CALLBACK_URL"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
