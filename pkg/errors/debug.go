package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

// ErrorDump is the log view of an error: its code policy, its unwrap chain and
// any postgres diagnostics found along it.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Retryable  bool
	Alertable  bool
	Chain      []string
	// Causes lists the members of a multierr aggregate, if err is one.
	Causes []string
	PG     *PGDiagnostics
}

// PGDiagnostics carries the server fields of a postgres error from either
// driver.
type PGDiagnostics struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Code: CodeOf(err)}
	meta := MetadataFor(d.Code)
	d.Retryable, d.Alertable = meta.Retryable, meta.Alertable

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if causes := multierr.Errors(err); len(causes) > 1 {
		for _, c := range causes {
			d.Causes = append(d.Causes, c.Error())
		}
	}
	d.PG = pgDiagnostics(err)
	return d
}

func pgDiagnostics(err error) *PGDiagnostics {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDiagnostics{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDiagnostics{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields flattens the dump for structured logging. Empty parts are omitted.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if len(d.Causes) > 0 {
		fields["error_causes"] = d.Causes
	}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_message"] = d.PG.Message
		if d.PG.Detail != "" {
			fields["pg_detail"] = d.PG.Detail
		}
		if d.PG.Constraint != "" {
			fields["pg_constraint"] = d.PG.Constraint
		}
		if d.PG.Table != "" {
			fields["pg_table"] = d.PG.Table
		}
		if d.PG.Column != "" {
			fields["pg_column"] = d.PG.Column
		}
	}
	return fields
}
