package docstore

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"time"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (q Query) validate() error {
	if q.Collection == "" {
		return fmt.Errorf("docstore: query without collection")
	}
	if q.Where != nil && !fieldName.MatchString(q.Where.Field) {
		return fmt.Errorf("docstore: invalid filter field %q", q.Where.Field)
	}
	if q.OrderBy != "" && !fieldName.MatchString(q.OrderBy) {
		return fmt.Errorf("docstore: invalid order field %q", q.OrderBy)
	}
	return nil
}

func (q Query) matches(d Document) bool {
	if q.Where == nil {
		return true
	}
	s, ok := valueString(d.Fields[q.Where.Field])
	return ok && s == q.Where.Value
}

// arrange drops documents lacking the order field and sorts the rest.
// Ties are broken by id so results are deterministic.
func (q Query) arrange(docs []Document) []Document {
	if q.OrderBy == "" {
		slices.SortFunc(docs, func(a, b Document) int { return cmp.Compare(a.ID, b.ID) })
		return docs
	}
	kept := docs[:0]
	for _, d := range docs {
		if _, ok := d.Fields[q.OrderBy]; ok {
			kept = append(kept, d)
		}
	}
	slices.SortStableFunc(kept, func(a, b Document) int {
		c := compareValues(a.Fields, b.Fields, q.OrderBy)
		if q.Descending {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})
	return kept
}

// compareValues orders timestamps chronologically, numbers numerically and
// everything else by its string form.
func compareValues(a, b Fields, key string) int {
	if ta, ok := a.Time(key); ok {
		if tb, ok := b.Time(key); ok {
			return compareTime(ta, tb)
		}
	}
	if fa, ok := a.Float(key); ok {
		if fb, ok := b.Float(key); ok {
			return cmp.Compare(fa, fb)
		}
	}
	sa, _ := valueString(a[key])
	sb, _ := valueString(b[key])
	return cmp.Compare(sa, sb)
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
