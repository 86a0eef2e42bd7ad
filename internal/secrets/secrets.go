// Package secrets resolves credentials stored in AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	sm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/JonMunkholm/transactions/internal/config"
	"github.com/JonMunkholm/transactions/internal/logging"
)

const lookupTimeout = 5 * time.Second

// API is the part of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, in *sm.GetSecretValueInput, optFns ...func(*sm.Options)) (*sm.GetSecretValueOutput, error)
}

// Manager reads secret strings.
type Manager struct {
	client API
}

// New builds a Manager from the default AWS credential chain.
func New(ctx context.Context, region string) (*Manager, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &Manager{client: sm.NewFromConfig(cfg)}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c API) *Manager {
	return &Manager{client: c}
}

// String returns the current value of secretID.
func (m *Manager) String(ctx context.Context, secretID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	out, err := m.client.GetSecretValue(ctx, &sm.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	return *out.SecretString, nil
}

// Password extracts a password from a secret value. RDS-style JSON
// secrets use their "password" field; anything else is the password.
func Password(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") {
		return value, nil
	}
	var doc struct {
		Password *string `json:"password"`
	}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return "", fmt.Errorf("parse secret: %w", err)
	}
	if doc.Password == nil {
		return "", errors.New("secret JSON has no password field")
	}
	return *doc.Password, nil
}

// ResolveDatabasePassword replaces db.Password with the secret named by
// db.PasswordSecret. It does nothing when no secret is configured.
func ResolveDatabasePassword(ctx context.Context, m *Manager, db *config.DatabaseConfig) error {
	if db.PasswordSecret == "" {
		return nil
	}
	value, err := m.String(ctx, db.PasswordSecret)
	if err != nil {
		return err
	}
	pw, err := Password(value)
	if err != nil {
		return fmt.Errorf("secret %s: %w", db.PasswordSecret, err)
	}
	db.Password = pw
	logging.FromContext(ctx).Debug("database password resolved from secret", "secret", db.PasswordSecret)
	return nil
}
