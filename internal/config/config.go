package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/altusmarket/order-saga/pkg/awsx"
)

// Config carries everything the environment provides: table names, the bus
// name, queue URLs and SMTP settings. It is built once at startup and
// injected into constructors, never read as ambient state afterwards.
type Config struct {
	Env  string
	Port string

	OrdersTable       string
	PaymentsTable     string
	FulfillmentsTable string

	EventBusName         string
	FulfillmentQueueURL  string
	NotificationQueueURL string

	ActivationBaseURL string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		OrdersTable:       getEnv("ORDERS_TABLE", "Orders"),
		PaymentsTable:     getEnv("PAYMENTS_TABLE", "Payments"),
		FulfillmentsTable: getEnv("FULFILLMENT_TABLE", "Fulfillments"),

		EventBusName:         os.Getenv("EVENT_BUS_NAME"),
		FulfillmentQueueURL:  os.Getenv("FULFILLMENT_QUEUE_URL"),
		NotificationQueueURL: os.Getenv("NOTIFICATION_QUEUE_URL"),

		ActivationBaseURL: getEnv("ACTIVATION_BASE_URL", "https://market.example.com/activate/"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awsx.LoadConfig(context.Background()); err == nil {
			sm := awsx.NewSecretsClient(awsCfg)

			if secret, err := sm.GetSecret(context.Background(), "order-saga/SMTP_CREDENTIALS"); err == nil && secret != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(secret), &m); err == nil {
					if v, ok := m["SMTP_USER"]; ok && v != "" {
						cfg.SMTPUser = v
					}
					if v, ok := m["SMTP_PASS"]; ok && v != "" {
						cfg.SMTPPass = v
					}
				}
			}
		}
	}

	if cfg.EventBusName == "" {
		return nil, fmt.Errorf("EVENT_BUS_NAME is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
