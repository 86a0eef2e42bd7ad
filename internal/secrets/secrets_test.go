package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/JonMunkholm/transactions/internal/config"
)

type fakeAPI struct {
	values map[string]*string
	asked  []string
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *sm.GetSecretValueInput, _ ...func(*sm.Options)) (*sm.GetSecretValueOutput, error) {
	id := aws.ToString(in.SecretId)
	f.asked = append(f.asked, id)
	v, ok := f.values[id]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &sm.GetSecretValueOutput{SecretString: v}, nil
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"plain", "hunter2", "hunter2", false},
		{"rds json", `{"username":"etl","password":"p@ss"}`, "p@ss", false},
		{"json without password", `{"username":"etl"}`, "", true},
		{"broken json", `{"password":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Password(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Password() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Password() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDatabasePassword(t *testing.T) {
	api := &fakeAPI{values: map[string]*string{
		"prod/db": aws.String(`{"password":"from-secret"}`),
		"binary":  nil,
	}}
	m := NewWithClient(api)

	db := config.DatabaseConfig{Password: "from-env", PasswordSecret: "prod/db"}
	if err := ResolveDatabasePassword(context.Background(), m, &db); err != nil {
		t.Fatal(err)
	}
	if db.Password != "from-secret" {
		t.Errorf("Password = %q", db.Password)
	}

	db = config.DatabaseConfig{PasswordSecret: "binary"}
	if err := ResolveDatabasePassword(context.Background(), m, &db); err == nil {
		t.Error("expected an error for a secret without a string value")
	}

	db = config.DatabaseConfig{PasswordSecret: "missing"}
	if err := ResolveDatabasePassword(context.Background(), m, &db); err == nil {
		t.Error("expected an error for a missing secret")
	}
}

func TestResolveDatabasePassword_NoSecret(t *testing.T) {
	api := &fakeAPI{}
	db := config.DatabaseConfig{Password: "from-env"}

	if err := ResolveDatabasePassword(context.Background(), NewWithClient(api), &db); err != nil {
		t.Fatal(err)
	}
	if db.Password != "from-env" || len(api.asked) != 0 {
		t.Errorf("password = %q, lookups = %v", db.Password, api.asked)
	}
}
