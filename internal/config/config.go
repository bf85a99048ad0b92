package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string // postgres DSN, or sqlite://path for local runs
	RedisURL            string
	AutoMigrate         bool
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	MailProvider        string // "brevo" (default) or "sendgrid"
	SendinblueAPIKey    string
	SendgridAPIKey      string
	MailFrom            string
	PortalBaseURL       string   // login link placed in credential emails
	ExpirySweepSchedule string   // cron expression for the invitation expiry sweeper
	PublicRateLimit     int      // requests per minute per IP on public endpoints
	ProxyHeader         string   // client IP header set by the load balancer, e.g. X-Forwarded-For
	TrustedProxies      []string // IPs or CIDRs allowed to set ProxyHeader
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAIL_PROVIDER", "brevo")
	viper.SetDefault("EXPIRY_SWEEP_SCHEDULE", "@every 15m")
	viper.SetDefault("PUBLIC_RATE_LIMIT", 30)

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		AutoMigrate:         strings.EqualFold(viper.GetString("AUTO_MIGRATE"), "true"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		MailProvider:        strings.ToLower(viper.GetString("MAIL_PROVIDER")),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		SendgridAPIKey:      viper.GetString("SENDGRID_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		PortalBaseURL:       portalBaseURL(viper.GetString("PORTAL_BASE_URL")),
		ExpirySweepSchedule: viper.GetString("EXPIRY_SWEEP_SCHEDULE"),
		PublicRateLimit:     viper.GetInt("PUBLIC_RATE_LIMIT"),
		ProxyHeader:         strings.TrimSpace(viper.GetString("PROXY_HEADER")),
		TrustedProxies:      splitList(viper.GetString("TRUSTED_PROXIES")),
	}, nil
}

func portalBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "http://localhost:3000"
	}
	return strings.TrimRight(s, "/")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
