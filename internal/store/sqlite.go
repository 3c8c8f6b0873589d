package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/hogehogetakumi/edinet-value-screener/internal/model"
)

const periodLayout = "2006-01-02"

// SQLiteStore persists records and signals to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so concurrent runs and read-only consumers don't block each other.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS financial_records (
			company_code        TEXT NOT NULL,
			period_end          TEXT NOT NULL,
			company_name        TEXT,
			revenue             TEXT,
			inventory           TEXT,
			net_income          TEXT,
			operating_cash_flow TEXT,
			doc_id              TEXT,
			submitted_at        INTEGER,
			ingested_at         INTEGER NOT NULL,
			PRIMARY KEY (company_code, period_end)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_company_period ON financial_records(company_code, period_end DESC)`,

		`CREATE TABLE IF NOT EXISTS screening_signals (
			company_code      TEXT NOT NULL,
			period_end        TEXT NOT NULL,
			company_name      TEXT,
			signal_inventory  TEXT,
			comment_inventory TEXT,
			signal_cf         TEXT,
			comment_cf        TEXT,
			updated_at        INTEGER NOT NULL,
			PRIMARY KEY (company_code, period_end)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_company_period ON screening_signals(company_code, period_end DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// UpsertRecord replaces the stored row for (company_code, period_end) when the
// new ingestion is not older than the stored one. A single conditional INSERT
// keeps the write atomic with respect to overlapping runs.
func (s *SQLiteStore) UpsertRecord(ctx context.Context, rec *model.FinancialRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO financial_records
		(company_code, period_end, company_name, revenue, inventory, net_income, operating_cash_flow, doc_id, submitted_at, ingested_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(company_code, period_end) DO UPDATE SET
			company_name=excluded.company_name,
			revenue=excluded.revenue,
			inventory=excluded.inventory,
			net_income=excluded.net_income,
			operating_cash_flow=excluded.operating_cash_flow,
			doc_id=excluded.doc_id,
			submitted_at=excluded.submitted_at,
			ingested_at=excluded.ingested_at
		WHERE excluded.ingested_at >= financial_records.ingested_at`,
		rec.CompanyCode, rec.PeriodEnd.Format(periodLayout), rec.CompanyName,
		nullAmount(rec.Revenue), nullAmount(rec.Inventory),
		nullAmount(rec.NetIncome), nullAmount(rec.OperatingCF),
		rec.DocID, rec.SubmittedAt.Unix(), rec.IngestedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.Key(), err)
	}
	return nil
}

// Record returns the stored record for exactly (company_code, period_end),
// or ErrNotFound.
func (s *SQLiteStore) Record(ctx context.Context, companyCode string, periodEnd time.Time) (*model.FinancialRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
			company_code, period_end, company_name, revenue, inventory, net_income, operating_cash_flow, doc_id, submitted_at, ingested_at
		FROM financial_records
		WHERE company_code = ? AND period_end = ?`,
		companyCode, periodEnd.Format(periodLayout),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record %s %s: %w", companyCode, periodEnd.Format(periodLayout), err)
	}
	return rec, nil
}

// PriorRecord returns the record with the largest period strictly before the
// given date, or ErrNotFound.
func (s *SQLiteStore) PriorRecord(ctx context.Context, companyCode string, before time.Time) (*model.FinancialRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
			company_code, period_end, company_name, revenue, inventory, net_income, operating_cash_flow, doc_id, submitted_at, ingested_at
		FROM financial_records
		WHERE company_code = ? AND period_end < ?
		ORDER BY period_end DESC
		LIMIT 1`,
		companyCode, before.Format(periodLayout),
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("prior record for %s: %w", companyCode, err)
	}
	return rec, nil
}

// UpsertClassified writes a screening row, replacing the existing one only
// when the new UpdatedAt is not older. A category left pending is stored as
// NULL, never as a fabricated signal.
func (s *SQLiteStore) UpsertClassified(ctx context.Context, rec *model.ClassifiedRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO screening_signals
		(company_code, period_end, company_name, signal_inventory, comment_inventory, signal_cf, comment_cf, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(company_code, period_end) DO UPDATE SET
			company_name=excluded.company_name,
			signal_inventory=excluded.signal_inventory,
			comment_inventory=excluded.comment_inventory,
			signal_cf=excluded.signal_cf,
			comment_cf=excluded.comment_cf,
			updated_at=excluded.updated_at
		WHERE excluded.updated_at >= screening_signals.updated_at`,
		rec.CompanyCode, rec.PeriodEnd.Format(periodLayout), rec.CompanyName,
		nullSignal(rec.Inventory), nullComment(rec.Inventory),
		nullSignal(rec.Accruals), nullComment(rec.Accruals),
		rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert signals %s %s: %w", rec.CompanyCode, rec.PeriodEnd.Format(periodLayout), err)
	}
	return nil
}

// LatestSignals returns the latest classified row per company, sorted by
// period descending.
func (s *SQLiteStore) LatestSignals(ctx context.Context) ([]model.ClassifiedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			s.company_code, s.period_end, s.company_name,
			s.signal_inventory, s.comment_inventory, s.signal_cf, s.comment_cf, s.updated_at
		FROM screening_signals s
		JOIN (
			SELECT company_code, MAX(period_end) AS period_end
			FROM screening_signals
			GROUP BY company_code
		) latest ON s.company_code = latest.company_code AND s.period_end = latest.period_end
		ORDER BY s.period_end DESC, s.company_code`)
	if err != nil {
		return nil, fmt.Errorf("query latest signals: %w", err)
	}
	defer rows.Close()

	var out []model.ClassifiedRecord
	for rows.Next() {
		var (
			rec        model.ClassifiedRecord
			period     string
			invSig     sql.NullString
			invComment sql.NullString
			cfSig      sql.NullString
			cfComment  sql.NullString
			updatedAt  int64
		)
		if err := rows.Scan(&rec.CompanyCode, &period, &rec.CompanyName,
			&invSig, &invComment, &cfSig, &cfComment, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan signals row: %w", err)
		}
		rec.PeriodEnd, err = time.Parse(periodLayout, period)
		if err != nil {
			return nil, fmt.Errorf("bad period_end %q: %w", period, err)
		}
		rec.Inventory = categoryFromColumns(invSig, invComment)
		rec.Accruals = categoryFromColumns(cfSig, cfComment)
		rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*model.FinancialRecord, error) {
	var (
		rec         model.FinancialRecord
		period      string
		revenue     sql.NullString
		inventory   sql.NullString
		netIncome   sql.NullString
		operatingCF sql.NullString
		submittedAt int64
		ingestedAt  int64
	)
	if err := row.Scan(&rec.CompanyCode, &period, &rec.CompanyName,
		&revenue, &inventory, &netIncome, &operatingCF,
		&rec.DocID, &submittedAt, &ingestedAt); err != nil {
		return nil, err
	}
	var err error
	rec.PeriodEnd, err = time.Parse(periodLayout, period)
	if err != nil {
		return nil, fmt.Errorf("bad period_end %q: %w", period, err)
	}
	if rec.Revenue, err = amountFromColumn(revenue); err != nil {
		return nil, err
	}
	if rec.Inventory, err = amountFromColumn(inventory); err != nil {
		return nil, err
	}
	if rec.NetIncome, err = amountFromColumn(netIncome); err != nil {
		return nil, err
	}
	if rec.OperatingCF, err = amountFromColumn(operatingCF); err != nil {
		return nil, err
	}
	rec.SubmittedAt = time.Unix(submittedAt, 0).UTC()
	rec.IngestedAt = time.Unix(ingestedAt, 0).UTC()
	return &rec, nil
}

func nullAmount(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func amountFromColumn(col sql.NullString) (decimal.NullDecimal, error) {
	if !col.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(col.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("bad stored amount %q: %w", col.String, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func nullSignal(c model.CategoryResult) interface{} {
	if c.Pending {
		return nil
	}
	return string(c.Signal)
}

func nullComment(c model.CategoryResult) interface{} {
	if c.Pending {
		return nil
	}
	return c.Comment
}

func categoryFromColumns(sig, comment sql.NullString) model.CategoryResult {
	if !sig.Valid {
		return model.CategoryResult{Pending: true}
	}
	return model.CategoryResult{Signal: model.Signal(sig.String), Comment: comment.String}
}
