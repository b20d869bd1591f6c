package experiment

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"activepool/internal/dataset"
	"activepool/internal/labeler"
	"activepool/internal/outcome"
	"activepool/internal/strategy"
)

// #endregion

// #region config

// RunConfig bounds a labeling run.
type RunConfig struct {
	// Quota is the maximum number of labels to acquire; 0 or less runs
	// until the pool is exhausted.
	Quota int
	// StrategyName labels outcome rows for post-hoc reports.
	StrategyName string
}

// DefaultRunConfig runs to exhaustion under a generic strategy name.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Quota:        0,
		StrategyName: "query",
	}
}

// #endregion

// #region results

// RoundResult is one committed round of the labeling loop.
type RoundResult struct {
	Round      int
	EntryIndex int
	Label      int
	Accuracy   float64
}

// Summary aggregates a finished (or aborted) run.
type Summary struct {
	RunID         string
	Rounds        int
	FinalAccuracy float64
	Exhausted     bool // the pool ran out before the quota did
}

// #endregion

// #region runner

// Runner drives the sequential labeling loop: query the strategy, ask the
// oracle, commit the label, evaluate. One Runner owns one Dataset and one
// strategy; nothing is shared across experiments. Aborting before a commit
// leaves the pool and every strategy cache unchanged.
type Runner struct {
	ds     *dataset.Dataset
	qs     strategy.QueryStrategy
	oracle labeler.Labeler
	eval   *Evaluator
	store  *outcome.Store // nil disables persistence
	cfg    RunConfig
}

// NewRunner wires a labeling run. eval and store are optional; a nil eval
// reports zero accuracy, a nil store skips persistence.
func NewRunner(qs strategy.QueryStrategy, oracle labeler.Labeler, eval *Evaluator, store *outcome.Store, cfg RunConfig) (*Runner, error) {
	if qs == nil {
		return nil, fmt.Errorf("runner: nil strategy")
	}
	if oracle == nil {
		return nil, fmt.Errorf("runner: nil labeler")
	}
	if cfg.StrategyName == "" {
		cfg.StrategyName = DefaultRunConfig().StrategyName
	}
	return &Runner{
		ds:     qs.Dataset(),
		qs:     qs,
		oracle: oracle,
		eval:   eval,
		store:  store,
		cfg:    cfg,
	}, nil
}

// #endregion

// #region run

// Run executes rounds until the quota is met, the pool is exhausted, or
// the context is canceled. Each round is atomic: the context is checked
// before the query and the oracle call happens before the commit, so a
// canceled round never leaves a partial commit behind. Results for rounds
// already committed are returned alongside any error.
func (r *Runner) Run(ctx context.Context) ([]RoundResult, Summary, error) {
	runID := uuid.NewString()
	summary := Summary{RunID: runID}
	var results []RoundResult

	log.Printf("[RUN] %s: start, labeled=%d unlabeled=%d quota=%d",
		runID, r.ds.LenLabeled(), r.ds.LenUnlabeled(), r.cfg.Quota)

	prevAcc := 0.0
	for round := 0; r.cfg.Quota <= 0 || round < r.cfg.Quota; round++ {
		if err := ctx.Err(); err != nil {
			return results, summary, err
		}

		idx, err := r.qs.MakeQuery()
		if errors.Is(err, dataset.ErrEmptyPool) {
			summary.Exhausted = true
			break
		}
		if err != nil {
			return results, summary, fmt.Errorf("round %d: %w", round, err)
		}

		entry, err := r.ds.Entry(idx)
		if err != nil {
			return results, summary, fmt.Errorf("round %d: %w", round, err)
		}

		label, err := r.oracle.Label(ctx, entry.Features)
		if err != nil {
			return results, summary, fmt.Errorf("round %d: oracle: %w", round, err)
		}

		if err := r.ds.Update(idx, label); err != nil {
			return results, summary, fmt.Errorf("round %d: %w", round, err)
		}

		acc := 0.0
		if r.eval != nil {
			if acc, err = r.eval.Accuracy(r.ds); err != nil {
				return results, summary, fmt.Errorf("round %d: %w", round, err)
			}
		}

		results = append(results, RoundResult{Round: round, EntryIndex: idx, Label: label, Accuracy: acc})
		summary.Rounds++
		summary.FinalAccuracy = acc

		if r.store != nil {
			rec := outcome.Record{
				RunID:       runID,
				Round:       round,
				Strategy:    r.cfg.StrategyName,
				EntryIndex:  idx,
				Label:       label,
				Probability: 1,
				Reward:      acc - prevAcc,
				Accuracy:    acc,
			}
			if err := r.store.RecordRound(rec); err != nil {
				return results, summary, fmt.Errorf("round %d: %w", round, err)
			}
		}
		prevAcc = acc

		log.Printf("[RUN] %s: round=%d index=%d label=%d accuracy=%.3f", runID, round, idx, label, acc)
	}

	log.Printf("[RUN] %s: done, rounds=%d exhausted=%v accuracy=%.3f",
		runID, summary.Rounds, summary.Exhausted, summary.FinalAccuracy)
	return results, summary, nil
}

// #endregion
