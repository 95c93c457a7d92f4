// Package dedup decides whether an incoming draft duplicates an open
// request. Scoring is pure computation over structured drafts; the caller
// supplies the candidate set and persists whatever link the decision
// requires.
package dedup

import (
	"sort"

	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/domain"
)

// Decision is the dedup verdict for a draft against its best candidate.
type Decision int

const (
	// DecisionDistinct proceeds as a new, unrelated request.
	DecisionDistinct Decision = iota
	// DecisionLinkPending opens a duplicate link for human review.
	DecisionLinkPending
	// DecisionAutoConfirm links without review.
	DecisionAutoConfirm
)

func (d Decision) String() string {
	switch d {
	case DecisionLinkPending:
		return "link_pending"
	case DecisionAutoConfirm:
		return "auto_confirm"
	default:
		return "distinct"
	}
}

// mismatchMargin keeps a conflicted score strictly below the auto-confirm
// threshold: high title overlap with, say, a different year is review
// material, never an automatic merge.
const mismatchMargin = 0.01

// Engine ranks dedup candidates under configured thresholds.
type Engine struct {
	cfg config.DedupConfig
}

func NewEngine(cfg config.DedupConfig) *Engine {
	return &Engine{cfg: cfg}
}

// FindDuplicates scores the draft against each open request and returns
// matches ordered by descending similarity (ties broken by older request
// first). Category is a hard filter and terminal-status candidates are
// skipped. The result is recomputed per call; at most MaxCandidates
// inputs are considered.
func (e *Engine) FindDuplicates(draft *domain.Draft, open []domain.Request) []domain.Match {
	if e.cfg.MaxCandidates > 0 && len(open) > e.cfg.MaxCandidates {
		open = open[:e.cfg.MaxCandidates]
	}

	matches := make([]domain.Match, 0, len(open))
	for _, r := range open {
		if r.Category != draft.Category || r.Status.IsTerminal() {
			continue
		}
		score, conflict := Similarity(draft, &r)
		if conflict {
			if ceiling := e.cfg.AutoConfirmThreshold - mismatchMargin; score > ceiling {
				score = ceiling
			}
		}
		matches = append(matches, domain.Match{Candidate: r, Similarity: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Candidate.ID < matches[j].Candidate.ID
	})
	return matches
}

// Decide maps a similarity score onto the configured thresholds.
func (e *Engine) Decide(score float64) Decision {
	switch {
	case score >= e.cfg.AutoConfirmThreshold:
		return DecisionAutoConfirm
	case score >= e.cfg.LinkThreshold:
		return DecisionLinkPending
	default:
		return DecisionDistinct
	}
}
