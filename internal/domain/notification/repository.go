package notification

import "context"

type LogRepository interface {
	// InsertIfAbsent writes the log row unless one already exists for the
	// same (tenant, employee, session date, slot, kind). The check and the
	// write are a single conditional insert, so concurrent sweeps cannot
	// both win. Returns created=false when the row existed.
	InsertIfAbsent(ctx context.Context, log Log) (bool, error)
}
