package config

import "time"

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8081,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "bizdesk_test",
			User:     "test_user",
			Password: "test_password",
		},
		Auth: AuthConfig{
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
		},
		Storage: StorageConfig{
			URLTTL: time.Hour,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		Import: ImportConfig{
			MaxRows:      100,
			RateMax:      5,
			RateWindow:   time.Hour,
			RetryAttempt: 1,
		},
		Archive: ArchiveConfig{
			Cron:        "0 3 * * *",
			AfterMonths: 12,
		},
	}
}
