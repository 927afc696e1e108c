package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tradebot/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BotStore = (*SQLiteStore)(nil)
var _ ResultStore = (*SQLiteStore)(nil)

const defaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS bots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	symbol        TEXT NOT NULL,
	timeframe     TEXT NOT NULL,
	strategy_type TEXT NOT NULL DEFAULT '',
	code          TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	bot_id           INTEGER,
	symbol           TEXT NOT NULL,
	timeframe        TEXT NOT NULL,
	period_years     INTEGER NOT NULL,
	initial_capital  REAL NOT NULL,
	final_capital    REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	sharpe_ratio     REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	win_rate_pct     REAL NOT NULL,
	profit_factor    REAL NOT NULL,
	total_trades     INTEGER NOT NULL,
	equity_curve     TEXT NOT NULL DEFAULT '[]',
	trades           TEXT NOT NULL DEFAULT '[]',
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_symbol ON results(symbol);
`

// SQLiteStore implements BotStore and ResultStore backed by a SQLite
// database. Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// BotStore implementation
// ---------------------------------------------------------------------------

// CreateBot inserts a new bot and fills in its ID and timestamps.
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *Bot) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bots (name, symbol, timeframe, strategy_type, code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bot.Name, bot.Symbol, bot.Timeframe, bot.StrategyType, bot.Code,
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting bot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting bot: %w", err)
	}
	bot.ID = id
	bot.CreatedAt = now
	bot.UpdatedAt = now
	return nil
}

// GetBot retrieves a single bot by ID.
func (s *SQLiteStore) GetBot(ctx context.Context, id int64) (*Bot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, symbol, timeframe, strategy_type, code, created_at, updated_at
		 FROM bots WHERE id = ?`, id)
	bot, err := scanBot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bot %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading bot %d: %w", id, err)
	}
	return bot, nil
}

// ListBots returns all bots, newest first.
func (s *SQLiteStore) ListBots(ctx context.Context) ([]Bot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, symbol, timeframe, strategy_type, code, created_at, updated_at
		 FROM bots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing bots: %w", err)
	}
	defer rows.Close()

	var bots []Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("listing bots: %w", err)
		}
		bots = append(bots, *bot)
	}
	return bots, rows.Err()
}

// UpdateBot persists changes to an existing bot.
func (s *SQLiteStore) UpdateBot(ctx context.Context, bot *Bot) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE bots SET name = ?, symbol = ?, timeframe = ?, strategy_type = ?, code = ?, updated_at = ?
		 WHERE id = ?`,
		bot.Name, bot.Symbol, bot.Timeframe, bot.StrategyType, bot.Code,
		now.UnixMilli(), bot.ID)
	if err != nil {
		return fmt.Errorf("updating bot %d: %w", bot.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating bot %d: %w", bot.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bot %d", ErrNotFound, bot.ID)
	}
	bot.UpdatedAt = now
	return nil
}

// DeleteBot removes a bot by ID.
func (s *SQLiteStore) DeleteBot(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bot %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bot %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bot %d", ErrNotFound, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveResult inserts a new result and fills in its ID and timestamp.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *Result) error {
	curve, err := json.Marshal(emptyIfNilFloats(r.EquityCurve))
	if err != nil {
		return fmt.Errorf("encoding equity curve: %w", err)
	}
	trades, err := json.Marshal(emptyIfNilTrades(r.Trades))
	if err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (bot_id, symbol, timeframe, period_years, initial_capital,
			final_capital, total_return_pct, sharpe_ratio, max_drawdown_pct, win_rate_pct,
			profit_factor, total_trades, equity_curve, trades, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(r.BotID), r.Symbol, r.Timeframe, r.PeriodYears, r.InitialCapital,
		r.FinalCapital, r.TotalReturnPct, r.SharpeRatio, r.MaxDrawdownPct, r.WinRatePct,
		r.ProfitFactor, r.TotalTrades, string(curve), string(trades), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// GetResult retrieves a single result by ID.
func (s *SQLiteStore) GetResult(ctx context.Context, id int64) (*Result, error) {
	row := s.db.QueryRowContext(ctx, selectResult+` WHERE id = ?`, id)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: result %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading result %d: %w", id, err)
	}
	return r, nil
}

// ListResults returns saved results matching the filter, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]Result, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := selectResult
	args := []any{}
	if filter.Symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, filter.Symbol)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("listing results: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// DeleteResult removes a result by ID.
func (s *SQLiteStore) DeleteResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting result %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting result %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: result %d", ErrNotFound, id)
	}
	return nil
}

// Stats aggregates all saved results. With no results every field is zero.
func (s *SQLiteStore) Stats(ctx context.Context) (*StatsSummary, error) {
	summary := &StatsSummary{}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(total_return_pct), 0), COALESCE(AVG(sharpe_ratio), 0)
		 FROM results`)
	if err := row.Scan(&summary.TotalResults, &summary.AvgReturnPct, &summary.AvgSharpeRatio); err != nil {
		return nil, fmt.Errorf("aggregating results: %w", err)
	}
	if summary.TotalResults == 0 {
		return summary, nil
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT symbol, total_return_pct FROM results
		 ORDER BY total_return_pct DESC, id ASC LIMIT 1`)
	if err := row.Scan(&summary.BestSymbol, &summary.BestReturnPct); err != nil {
		return nil, fmt.Errorf("finding best result: %w", err)
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

const selectResult = `SELECT id, bot_id, symbol, timeframe, period_years, initial_capital,
	final_capital, total_return_pct, sharpe_ratio, max_drawdown_pct, win_rate_pct,
	profit_factor, total_trades, equity_curve, trades, created_at FROM results`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (*Bot, error) {
	var bot Bot
	var created, updated int64
	err := row.Scan(&bot.ID, &bot.Name, &bot.Symbol, &bot.Timeframe,
		&bot.StrategyType, &bot.Code, &created, &updated)
	if err != nil {
		return nil, err
	}
	bot.CreatedAt = time.UnixMilli(created).UTC()
	bot.UpdatedAt = time.UnixMilli(updated).UTC()
	return &bot, nil
}

func scanResult(row rowScanner) (*Result, error) {
	var r Result
	var botID sql.NullInt64
	var curve, trades string
	var created int64
	err := row.Scan(&r.ID, &botID, &r.Symbol, &r.Timeframe, &r.PeriodYears,
		&r.InitialCapital, &r.FinalCapital, &r.TotalReturnPct, &r.SharpeRatio,
		&r.MaxDrawdownPct, &r.WinRatePct, &r.ProfitFactor, &r.TotalTrades,
		&curve, &trades, &created)
	if err != nil {
		return nil, err
	}
	if botID.Valid {
		r.BotID = &botID.Int64
	}
	if err := json.Unmarshal([]byte(curve), &r.EquityCurve); err != nil {
		return nil, fmt.Errorf("decoding equity curve: %w", err)
	}
	if err := json.Unmarshal([]byte(trades), &r.Trades); err != nil {
		return nil, fmt.Errorf("decoding trades: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	return &r, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func emptyIfNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}

func emptyIfNilTrades(v []domain.Trade) []domain.Trade {
	if v == nil {
		return []domain.Trade{}
	}
	return v
}
