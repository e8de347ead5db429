package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var ErrInvalidCASUpdate = errors.New("invalid compare-and-swap update")

// Assignment is a column/value pair.
type Assignment struct {
	Column string
	Value  interface{}
}

// CASUpdate describes a conditional update: rows matching Where whose
// Expected column still holds the previously observed value get Set applied.
// A nil Expected.Value matches NULL.
type CASUpdate struct {
	Table    string
	Where    []Assignment
	Expected Assignment
	Set      []Assignment
}

// SQL renders the statement and its positional arguments.
func (u CASUpdate) SQL() (string, []interface{}, error) {
	if len(u.Set) == 0 {
		return "", nil, fmt.Errorf("%w: no columns to set", ErrInvalidCASUpdate)
	}
	if !identifierRegex.MatchString(u.Table) || !identifierRegex.MatchString(u.Expected.Column) {
		return "", nil, fmt.Errorf("%w: bad identifier", ErrInvalidCASUpdate)
	}

	args := make([]interface{}, 0, len(u.Set)+len(u.Where)+1)
	setParts := make([]string, 0, len(u.Set))
	for _, a := range u.Set {
		if !identifierRegex.MatchString(a.Column) {
			return "", nil, fmt.Errorf("%w: bad column %q", ErrInvalidCASUpdate, a.Column)
		}
		args = append(args, a.Value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", a.Column, len(args)))
	}

	whereParts := make([]string, 0, len(u.Where)+1)
	for _, a := range u.Where {
		if !identifierRegex.MatchString(a.Column) {
			return "", nil, fmt.Errorf("%w: bad column %q", ErrInvalidCASUpdate, a.Column)
		}
		args = append(args, a.Value)
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", a.Column, len(args)))
	}
	if u.Expected.Value == nil {
		whereParts = append(whereParts, u.Expected.Column+" IS NULL")
	} else {
		args = append(args, u.Expected.Value)
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", u.Expected.Column, len(args)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		u.Table, strings.Join(setParts, ", "), strings.Join(whereParts, " AND "))
	return query, args, nil
}

// CompareAndSwap executes u and returns the number of affected rows. Zero
// means another writer changed the expected column first.
func CompareAndSwap(ctx context.Context, q Querier, u CASUpdate) (int64, error) {
	query, args, err := u.SQL()
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute compare-and-swap on %s: %w", u.Table, err)
	}
	return tag.RowsAffected(), nil
}
