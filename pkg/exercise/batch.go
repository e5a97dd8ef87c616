package exercise

import (
	"log/slog"
)

// Batch is an ordered set of exercises fetched together.
type Batch struct {
	Source    Source
	Exercises []*Exercise
}

// NewBatch builds exercises from records. Records failing validation are
// skipped and returned in rejected.
func NewBatch(src Source, records []Record) (b *Batch, rejected []error) {
	b = &Batch{
		Source:    src,
		Exercises: make([]*Exercise, 0, len(records)),
	}
	for _, r := range records {
		e, err := New(r, src)
		if err != nil {
			slog.Warn("skipping exercise record", "id", r.ID, "error", err)
			rejected = append(rejected, err)
			continue
		}
		b.Exercises = append(b.Exercises, e)
	}
	return b, rejected
}

// Append adds more exercises, as produced by a later generation request.
func (b *Batch) Append(records []Record) []error {
	more, rejected := NewBatch(b.Source, records)
	b.Exercises = append(b.Exercises, more.Exercises...)
	return rejected
}

func (b *Batch) Len() int {
	return len(b.Exercises)
}

// Summary counts submitted exercises by verdict.
func (b *Batch) Summary() map[string]int {
	s := map[string]int{"total": len(b.Exercises)}
	for _, e := range b.Exercises {
		r, err := e.Result()
		if err != nil {
			s["unanswered"]++
			continue
		}
		s[string(r.Verdict)]++
	}
	return s
}
