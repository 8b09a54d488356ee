package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	RedisPrefix              string
	DataDir                  string
	StoreTimezone            string
	AdminSecret              string
	AuthSecret               string
	AccessTokenTTLMinutes    int
	PendingActionTTLSeconds  int
	ElectronicPaymentMethods []string
	OTLPEndpoint             string
	BusinessName             string
	BusinessNIT              string
	BusinessAddress          string
	BusinessPhone            string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	actionTTL, err := strconv.Atoi(getEnv("PENDING_ACTION_TTL_SECONDS", "120"))
	if err != nil || actionTTL < 1 {
		actionTTL = 120
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		RedisPrefix:              getEnv("REDIS_PREFIX", "papelpos:"),
		DataDir:                  strings.TrimSpace(os.Getenv("DATA_DIR")),
		StoreTimezone:            getEnv("STORE_TIMEZONE", "America/Bogota"),
		AdminSecret:              strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		PendingActionTTLSeconds:  actionTTL,
		ElectronicPaymentMethods: splitList(os.Getenv("ELECTRONIC_PAYMENT_METHODS")),
		OTLPEndpoint:             strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		BusinessName:             getEnv("BUSINESS_NAME", "Papelería Papel y Luna"),
		BusinessNIT:              getEnv("BUSINESS_NIT", "NIT: 000.000.000-0"),
		BusinessAddress:          os.Getenv("BUSINESS_ADDRESS"),
		BusinessPhone:            os.Getenv("BUSINESS_PHONE"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
