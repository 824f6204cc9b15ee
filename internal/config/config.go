package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	defaultReapInterval = 5 * time.Minute
	defaultStaleAfter   = 30 * time.Minute
)

type Config struct {
	ServerAddr        string
	DatabaseDSN       string
	SigningKey        []byte
	AdminPasswordHash string
	AllowedOrigins    []string
	// ReapInterval is how often the relay sweeps for stale chat rooms.
	ReapInterval time.Duration
	// StaleAfter is how long an empty room may sit idle before a sweep removes it.
	StaleAfter time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret, adminPasswordHash string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if adminPasswordHash == "" {
		return nil, fmt.Errorf("admin password hash cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:        serverAddr,
		DatabaseDSN:       databaseDSN,
		SigningKey:        signingKey,
		AdminPasswordHash: adminPasswordHash,
		AllowedOrigins:    allowedOrigins,
		ReapInterval:      defaultReapInterval,
		StaleAfter:        defaultStaleAfter,
	}, nil
}
