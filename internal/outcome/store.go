package outcome

// #region imports
import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #endregion

// #region schema

const queryOutcomesSchema = `
CREATE TABLE IF NOT EXISTS query_outcomes (
    id           TEXT PRIMARY KEY,
    run_id       TEXT NOT NULL,
    round        INTEGER NOT NULL,
    strategy     TEXT NOT NULL,
    entry_index  INTEGER NOT NULL,
    label        INTEGER NOT NULL,
    probability  REAL NOT NULL DEFAULT 1,
    reward       REAL NOT NULL DEFAULT 0,
    accuracy     REAL NOT NULL,
    created_at   TEXT NOT NULL
);
`

const queryOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_query_outcomes_run
ON query_outcomes(run_id, strategy);
`

// #endregion

// #region record

// Record is one committed query round.
type Record struct {
	RunID       string
	Round       int
	Strategy    string
	EntryIndex  int
	Label       int
	Probability float64 // selection probability of the strategy that won the round
	Reward      float64
	Accuracy    float64 // proxy metric after the commit, e.g. held-out accuracy
	CreatedAt   time.Time
}

// StrategyStats summarizes one strategy's rounds within a run.
type StrategyStats struct {
	Strategy   string
	Queries    int
	MeanReward float64 // decay-weighted, recent rounds count more
}

// #endregion

// #region store

// Store persists query outcomes in SQLite and serves decay-weighted
// per-strategy reports for post-hoc analysis of a labeling run.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path and runs migrations.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open outcome db: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore initializes the query_outcomes table on an existing handle.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(queryOutcomesSchema); err != nil {
		return nil, fmt.Errorf("create query_outcomes: %w", err)
	}
	if _, err := db.Exec(queryOutcomesIndex); err != nil {
		return nil, fmt.Errorf("index query_outcomes: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion

// #region record-round

// RecordRound persists a single round.
func (s *Store) RecordRound(rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO query_outcomes
		(id, run_id, round, strategy, entry_index, label, probability, reward, accuracy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.RunID,
		rec.Round,
		rec.Strategy,
		rec.EntryIndex,
		rec.Label,
		rec.Probability,
		rec.Reward,
		rec.Accuracy,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record round %d: %w", rec.Round, err)
	}
	return nil
}

// #endregion

// #region strategy-report

// StrategyReport returns per-strategy stats for a run, reward-averaged with
// an exponential decay over round age so late rounds dominate. halfLife is
// measured in rounds; values below 1 fall back to 20.
func (s *Store) StrategyReport(runID string, halfLife float64) ([]StrategyStats, error) {
	if halfLife < 1 {
		halfLife = 20
	}

	var latest sql.NullInt64
	if err := s.db.QueryRow(`
		SELECT MAX(round) FROM query_outcomes WHERE run_id = ?`, runID,
	).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest round for %s: %w", runID, err)
	}
	if !latest.Valid {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT strategy, round, reward
		FROM query_outcomes
		WHERE run_id = ?
		ORDER BY strategy, round`, runID)
	if err != nil {
		return nil, fmt.Errorf("outcomes for %s: %w", runID, err)
	}
	defer rows.Close()

	type accum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}
	byStrategy := make(map[string]*accum)
	var order []string

	for rows.Next() {
		var name string
		var round int
		var reward float64
		if err := rows.Scan(&name, &round, &reward); err != nil {
			return nil, err
		}
		a, ok := byStrategy[name]
		if !ok {
			a = &accum{}
			byStrategy[name] = a
			order = append(order, name)
		}
		age := float64(latest.Int64 - int64(round))
		weight := math.Exp2(-age / halfLife)
		a.weightedSum += reward * weight
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StrategyStats, 0, len(order))
	for _, name := range order {
		a := byStrategy[name]
		mean := 0.0
		if a.totalWeight > 0 {
			mean = a.weightedSum / a.totalWeight
		}
		out = append(out, StrategyStats{Strategy: name, Queries: a.count, MeanReward: mean})
	}
	return out, nil
}

// #endregion
