package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var notificationColumns = []string{
	"id", "vendor", "show_id", "target", "kind", "subject", "offer_count", "sent_at",
}

// ToSQL builds the data and count statements for a history query. Both
// share the same positional parameters.
func (q *NotificationQuery) ToSQL() (dataSQL, countSQL string, args []any, err error) {
	where := sq.And{}
	if q.Target != nil {
		where = append(where, sq.Eq{"target": *q.Target})
	}
	if q.Vendor != nil {
		where = append(where, sq.Eq{"vendor": *q.Vendor})
	}
	if q.Kind != nil {
		where = append(where, sq.Eq{"kind": *q.Kind})
	}
	if q.Since != nil {
		where = append(where, sq.GtOrEq{"sent_at": *q.Since})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := max(q.Offset, 0)

	data := psql.Select(notificationColumns...).From("notifications")
	count := psql.Select("COUNT(*)").From("notifications")
	if len(where) > 0 {
		data = data.Where(where)
		count = count.Where(where)
	}

	dataSQL, args, err = data.
		OrderBy("sent_at DESC", "id").
		Limit(uint64(limit)).  //nolint:gosec // bounded above
		Offset(uint64(offset)). //nolint:gosec // non-negative
		ToSql()
	if err != nil {
		return "", "", nil, fmt.Errorf("building notifications query: %w", err)
	}

	countSQL, _, err = count.ToSql()
	if err != nil {
		return "", "", nil, fmt.Errorf("building notifications count: %w", err)
	}

	return dataSQL, countSQL, args, nil
}

// insertNotificationSQL builds the insert statement for one record.
func insertNotificationSQL(values ...any) (string, []any, error) {
	return psql.Insert("notifications").
		Columns(notificationColumns...).
		Values(values...).
		ToSql()
}
