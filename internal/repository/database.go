package repository

import (
	"coinlab/internal/repository/queries"
	"context"
	_ "embed"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrNoPrices = errors.New("no prices found in datasource")
)

//go:embed schema.sql
var schema string

type pricesRepository interface {
	GetPriceHistory(ctx context.Context, arg queries.GetPriceHistoryParams) ([]queries.Price, error)
	UpsertPrice(ctx context.Context, arg queries.UpsertPriceParams) error
}

type resultsRepository interface {
	InsertBacktestResult(ctx context.Context, arg queries.InsertBacktestResultParams) error
	InsertOptimizationResult(ctx context.Context, arg queries.InsertOptimizationResultParams) error
	ListOptimizationResults(ctx context.Context, arg queries.ListOptimizationResultsParams) ([]queries.OptimizationResult, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	prices  pricesRepository
	results resultsRepository
	conn    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	q := queries.New(conn)
	return &Database{
		prices:  q,
		results: q,
		conn:    conn,
	}, nil
}

// Migrate creates the tables if they do not exist yet.
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
