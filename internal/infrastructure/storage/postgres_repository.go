package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ReviewsAnalyzer/internal/domain"
	"ReviewsAnalyzer/internal/ports"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS banks (
    bank_id   SERIAL PRIMARY KEY,
    bank_name TEXT NOT NULL UNIQUE,
    app_name  TEXT
);
CREATE TABLE IF NOT EXISTS reviews (
    review_id       TEXT PRIMARY KEY,
    bank_id         INTEGER NOT NULL REFERENCES banks(bank_id),
    review_text     TEXT NOT NULL,
    rating          SMALLINT CHECK (rating BETWEEN 1 AND 5),
    review_date     DATE,
    sentiment_label TEXT,
    sentiment_score DOUBLE PRECISION,
    source          TEXT,
    UNIQUE (bank_id, review_text, review_date)
);`

// PostgresRepository persists banks and scored reviews into Postgres.
type PostgresRepository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var _ ports.ReviewRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// Open connects to Postgres through lib/pq and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the banks and reviews tables when absent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load upserts banks and inserts reviews in one transaction. Reviews that
// collide with an existing row are counted as duplicates; reviews whose bank
// cannot be resolved are skipped.
func (r *PostgresRepository) Load(ctx context.Context, banks []domain.Bank, rows []domain.EnrichedReview) (domain.LoadReport, error) {
	var report domain.LoadReport

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range banks {
		query, args, err := r.sb.Insert("banks").
			Columns("bank_name", "app_name").
			Values(b.Name, b.AppID).
			Suffix("ON CONFLICT (bank_name) DO NOTHING").
			ToSql()
		if err != nil {
			return report, fmt.Errorf("build bank insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return report, fmt.Errorf("upsert bank %s: %w", b.Code, err)
		}
	}
	report.Banks = len(banks)

	ids, err := r.bankIDs(ctx, tx, banks)
	if err != nil {
		return report, err
	}
	byCode := make(map[string]string, len(banks))
	for _, b := range banks {
		byCode[b.Code] = b.Name
	}

	for _, row := range rows {
		bankID, ok := ids[nameKey(row.BankName)]
		if !ok {
			bankID, ok = ids[nameKey(byCode[row.BankCode])]
		}
		if !ok {
			report.UnknownBank++
			continue
		}

		query, args, err := r.sb.Insert("reviews").
			Columns("review_id", "bank_id", "review_text", "rating", "review_date",
				"sentiment_label", "sentiment_score", "source").
			Values(row.ReviewID, bankID, row.Text, nullableRating(row.Rating), nullableDate(row),
				sentimentLabel(row.Sentiment), sentimentScore(row.Sentiment), row.Source).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return report, fmt.Errorf("build review insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return report, fmt.Errorf("insert review %s: %w", row.ReviewID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return report, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			report.Duplicates++
		} else {
			report.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit: %w", err)
	}

	if r.logger != nil {
		r.logger.Info("reviews loaded",
			"banks", report.Banks,
			"inserted", report.Inserted,
			"duplicates", report.Duplicates,
			"unknown_bank", report.UnknownBank)
	}
	return report, nil
}

func (r *PostgresRepository) bankIDs(ctx context.Context, tx *sql.Tx, banks []domain.Bank) (map[string]int64, error) {
	names := make([]string, 0, len(banks))
	for _, b := range banks {
		names = append(names, b.Name)
	}

	query, args, err := r.sb.Select("bank_id", "bank_name").
		From("banks").
		Where("bank_name = ANY(?)", pq.Array(names)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bank lookup: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query banks: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64, len(banks))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		ids[nameKey(name)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// nameKey compares bank names ignoring case and spacing.
func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func nullableRating(r *int) any {
	if r == nil {
		return nil
	}
	return *r
}

func nullableDate(row domain.EnrichedReview) any {
	if row.Date == nil {
		return nil
	}
	return *row.Date
}

func sentimentLabel(s *domain.Sentiment) any {
	if s == nil {
		return nil
	}
	return string(s.Label)
}

func sentimentScore(s *domain.Sentiment) any {
	if s == nil {
		return nil
	}
	return s.Score
}
