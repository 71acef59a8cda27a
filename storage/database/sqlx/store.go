package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// uniqueConstraint returns the name of the unique index err violated, if any.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// conditions collects AND-ed WHERE clauses using ? bindvars.
type conditions struct {
	clauses []string
	args    []interface{}
}

// add expects one ? in clause per arg.
func (c *conditions) add(clause string, args ...interface{}) {
	c.args = append(c.args, args...)
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) addRaw(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c conditions) String() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// query appends the WHERE clause and tail to base and rebinds it for lib/pq.
func (c conditions) query(base, tail string) string {
	return sqlx.Rebind(sqlx.DOLLAR, base+c.String()+tail)
}
