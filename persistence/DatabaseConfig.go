package persistence

import (
	"database/sql"
	"errors"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv reads DATABASE_URL, e.g.
// mysql://root:root@(127.0.0.1:3306)/flowtrack?charset=utf8mb4&parseTime=True&loc=Local
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	idx := strings.Index(databaseURL, "://")
	if idx <= 0 {
		return nil, errors.New("invalid DATABASE_URL: " + databaseURL)
	}
	return &DatabaseConfig{DriverType: databaseURL[:idx], DriverArgs: databaseURL[idx+3:]}, nil
}

// PrepareMysqlDatabase creates the database named in driverArgs when absent.
func PrepareMysqlDatabase(driverArgs string) error {
	slash := strings.LastIndex(driverArgs, "/")
	if slash < 0 {
		return errors.New("database name not found in driver args")
	}
	databaseName := driverArgs[slash+1:]
	if q := strings.Index(databaseName, "?"); q >= 0 {
		databaseName = databaseName[:q]
	}
	if databaseName == "" {
		return errors.New("database name not found in driver args")
	}

	conn, err := sql.Open("mysql", driverArgs[:slash+1]+"?timeout=5s")
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName + " DEFAULT CHARACTER SET utf8mb4")
	return err
}
