package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/pkg/errors"
)

const (
	defaultAttemptLimit = 100
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")

	insertAttemptSQL = `INSERT INTO attempt (
			id, exercise_id, source, content, answer, user_breaks, canonical_breaks,
			missing, extra, verdict, synced, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectAttemptColumns = `SELECT id, exercise_id, source, content, answer, user_breaks,
			canonical_breaks, missing, extra, verdict, synced, created_at
		FROM attempt`

	selectAttemptsSQL = selectAttemptColumns + `
		WHERE source = COALESCE(?, source)
		AND exercise_id = COALESCE(?, exercise_id)
		AND synced = COALESCE(?, synced)
		ORDER BY created_at DESC, id
		LIMIT ?`

	selectAttemptSQL = selectAttemptColumns + ` WHERE id = ?`

	updateAttemptSyncedSQL = `UPDATE attempt SET synced = 1 WHERE id = ?`

	deleteAttemptsSQL = `DELETE FROM attempt`
)

// Attempt is one scored submission of an exercise.
type Attempt struct {
	ID              string    `json:"id" yaml:"id"`
	ExerciseID      int64     `json:"exercise_id" yaml:"exerciseId"`
	Source          string    `json:"source" yaml:"source"`
	Content         string    `json:"content" yaml:"content"`
	Answer          string    `json:"answer" yaml:"answer"`
	UserBreaks      []int     `json:"user_breaks" yaml:"userBreaks"`
	CanonicalBreaks []int     `json:"canonical_breaks" yaml:"canonicalBreaks"`
	Missing         []int     `json:"missing" yaml:"missing"`
	Extra           []int     `json:"extra" yaml:"extra"`
	Verdict         string    `json:"verdict" yaml:"verdict"`
	Synced          bool      `json:"synced" yaml:"synced"`
	CreatedAt       time.Time `json:"created_at" yaml:"createdAt"`
}

func (a *Attempt) String() string {
	return fmt.Sprintf("%s #%d %s (%s)", a.Source, a.ExerciseID, a.Verdict, a.CreatedAt.Format(time.RFC3339))
}

// NewAttempt captures the scored state of e. The id and timestamp are
// assigned here.
func NewAttempt(e *exercise.Exercise, r segment.Result) *Attempt {
	return &Attempt{
		ID:              uuid.NewString(),
		ExerciseID:      e.ID,
		Source:          string(e.Source),
		Content:         e.Content,
		Answer:          e.Answer,
		UserBreaks:      r.UserBreaks,
		CanonicalBreaks: r.CanonicalBreaks,
		Missing:         r.Missing,
		Extra:           r.Extra,
		Verdict:         string(r.Verdict),
		CreatedAt:       time.Now().UTC(),
	}
}

// AttemptCriteria narrows ListAttempts. Nil fields match everything. A zero
// Limit uses the default page size; a negative one returns all rows.
type AttemptCriteria struct {
	Source     *string `json:"source,omitempty"`
	ExerciseID *int64  `json:"exercise_id,omitempty"`
	Unsynced   bool    `json:"unsynced,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

func SaveAttempt(db *sql.DB, a *Attempt) error {
	if db == nil {
		return errDBNotInitialized
	}
	if a == nil {
		return errors.New("attempt required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	cols, err := encodeBreaks(a.UserBreaks, a.CanonicalBreaks, a.Missing, a.Extra)
	if err != nil {
		return errors.Wrapf(err, "failed to encode breaks for attempt: %s", a.ID)
	}

	stmt, err := db.Prepare(bind(db, insertAttemptSQL))
	if err != nil {
		return errors.Wrap(err, "failed to prepare attempt insert statement")
	}
	defer stmt.Close()

	if _, err := stmt.Exec(a.ID, a.ExerciseID, a.Source, a.Content, a.Answer,
		cols[0], cols[1], cols[2], cols[3], a.Verdict, boolToInt(a.Synced), a.CreatedAt.UnixMilli()); err != nil {
		return errors.Wrapf(err, "failed to insert attempt: %s", a.ID)
	}

	slog.Debug("attempt saved", "id", a.ID, "exercise", a.ExerciseID, "verdict", a.Verdict)
	return nil
}

func ListAttempts(db *sql.DB, q *AttemptCriteria) ([]*Attempt, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if q == nil {
		q = &AttemptCriteria{}
	}
	limit := q.Limit
	switch {
	case limit == 0:
		limit = defaultAttemptLimit
	case limit < 0:
		limit = math.MaxInt32
	}
	var synced *int
	if q.Unsynced {
		synced = new(int)
	}

	stmt, err := db.Prepare(bind(db, selectAttemptsSQL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare attempt select statement")
	}
	defer stmt.Close()

	rows, err := stmt.Query(q.Source, q.ExerciseID, synced, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute attempt select statement")
	}
	defer rows.Close()

	list := make([]*Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate attempts")
	}

	return list, nil
}

// GetAttempt returns the attempt with id or ErrAttemptNotFound.
func GetAttempt(db *sql.DB, id string) (*Attempt, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	a, err := scanAttempt(db.QueryRow(bind(db, selectAttemptSQL), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrAttemptNotFound, id)
		}
		return nil, err
	}
	return a, nil
}

// MarkSynced flags the attempt as delivered to the remote answer log.
func MarkSynced(db *sql.DB, id string) error {
	if db == nil {
		return errDBNotInitialized
	}

	res, err := db.Exec(bind(db, updateAttemptSyncedSQL), id)
	if err != nil {
		return errors.Wrapf(err, "failed to mark attempt synced: %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrAttemptNotFound, id)
	}
	return nil
}

// DeleteAttempts removes the whole history and returns the number of
// deleted attempts.
func DeleteAttempts(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	res, err := db.Exec(deleteAttemptsSQL)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete attempts")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted attempts")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*Attempt, error) {
	a := &Attempt{}
	var user, canonical, missing, extra string
	var synced int
	var created int64
	if err := row.Scan(&a.ID, &a.ExerciseID, &a.Source, &a.Content, &a.Answer,
		&user, &canonical, &missing, &extra, &a.Verdict, &synced, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan attempt row")
	}

	var err error
	if a.UserBreaks, err = decodeBreaks(user); err != nil {
		return nil, err
	}
	if a.CanonicalBreaks, err = decodeBreaks(canonical); err != nil {
		return nil, err
	}
	if a.Missing, err = decodeBreaks(missing); err != nil {
		return nil, err
	}
	if a.Extra, err = decodeBreaks(extra); err != nil {
		return nil, err
	}
	a.Synced = synced != 0
	a.CreatedAt = time.UnixMilli(created).UTC()

	return a, nil
}

func encodeBreaks(sets ...[]int) ([]string, error) {
	out := make([]string, len(sets))
	for i, s := range sets {
		if s == nil {
			s = []int{}
		}
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func decodeBreaks(s string) ([]int, error) {
	out := make([]int, 0)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, errors.Wrapf(err, "invalid break set: %s", s)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
