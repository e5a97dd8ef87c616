package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

var (
	selectStatsSQL = `SELECT
			source,
			COUNT(*) AS total,
			SUM(CASE WHEN verdict = 'correct' THEN 1 ELSE 0 END) AS correct,
			SUM(CASE WHEN verdict = 'incorrect' THEN 1 ELSE 0 END) AS incorrect,
			SUM(CASE WHEN verdict = 'unverifiable' THEN 1 ELSE 0 END) AS unverifiable,
			COUNT(DISTINCT exercise_id) AS exercises
		FROM attempt
		GROUP BY source
		ORDER BY source`
)

// SourceStats summarizes the attempts made against one exercise source.
type SourceStats struct {
	Source       string  `json:"source" yaml:"source"`
	Total        int64   `json:"total" yaml:"total"`
	Correct      int64   `json:"correct" yaml:"correct"`
	Incorrect    int64   `json:"incorrect" yaml:"incorrect"`
	Unverifiable int64   `json:"unverifiable" yaml:"unverifiable"`
	Exercises    int64   `json:"exercises" yaml:"exercises"`
	Accuracy     float64 `json:"accuracy" yaml:"accuracy"`
}

// GetStats returns per-source totals. Accuracy is computed over verifiable
// attempts only.
func GetStats(db *sql.DB) ([]*SourceStats, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectStatsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute stats select statement")
	}
	defer rows.Close()

	list := make([]*SourceStats, 0)
	for rows.Next() {
		s := &SourceStats{}
		if err := rows.Scan(&s.Source, &s.Total, &s.Correct, &s.Incorrect, &s.Unverifiable, &s.Exercises); err != nil {
			return nil, errors.Wrap(err, "failed to scan stats row")
		}
		if n := s.Correct + s.Incorrect; n > 0 {
			s.Accuracy = float64(s.Correct) / float64(n)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate stats")
	}

	return list, nil
}
