package testenv

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresUser     = "user"
	postgresPassword = "password"
	postgresDB       = "sorrel"
)

// Postgres returns a lib/pq DSN and the database name
func Postgres(t *testing.T) (string, string) {
	t.Helper()
	if host := os.Getenv("DB_HOST"); host != "" && !testing.Short() {
		name := getEnv("DB_NAME", postgresDB)
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, getEnv("DB_PORT", "5432"), getEnv("DB_USER_NAME", postgresUser), getEnv("DB_PASSWORD", postgresPassword), name)
		return dsn, name
	}
	skipUnlessContainers(t, "postgres", "DB_HOST")

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432")

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, postgresUser, postgresPassword, postgresDB)
	return dsn, postgresDB
}
