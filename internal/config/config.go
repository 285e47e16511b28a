package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	Port    string
	Env     string // development | production
	DBDSN   string
	LogFile string

	// CJ supplier API
	CJAPIBase       string
	CJEmail         string
	CJAPIKey        string
	CJWebhookSecret string

	// Payments
	PaymentWebhookSecret string

	// Cron tick endpoint
	CronSecret string

	// Admin allow-list (comma separated emails), in addition to role checks
	AdminEmails []string
}

func Load() Config {
	cfg := Config{
		Port:                 getenv("PORT", "8080"),
		Env:                  getenv("APP_ENV", "development"),
		DBDSN:                getenv("DB_DSN", "shopixo.db"), // sqlite file; postgres:// DSN in deployment
		LogFile:              os.Getenv("LOG_FILE"),
		CJAPIBase:            getenv("CJ_API_BASE", "https://developers.cjdropshipping.com/api2.0/v1"),
		CJEmail:              os.Getenv("CJ_EMAIL"),
		CJAPIKey:             os.Getenv("CJ_API_KEY"),
		CJWebhookSecret:      os.Getenv("CJ_WEBHOOK_SECRET"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CronSecret:           os.Getenv("CRON_SECRET"),
	}

	if raw := os.Getenv("ADMIN_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			if e = strings.TrimSpace(strings.ToLower(e)); e != "" {
				cfg.AdminEmails = append(cfg.AdminEmails, e)
			}
		}
	}

	log.Printf("[config] PORT=%s APP_ENV=%s DB_DSN=%s CJ_API_BASE=%s admins=%d",
		cfg.Port, cfg.Env, cfg.DBDSN, cfg.CJAPIBase, len(cfg.AdminEmails))
	return cfg
}

func (c Config) Production() bool { return c.Env == "production" }

// IsAdminEmail reports whether the given email is on the admin allow-list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
