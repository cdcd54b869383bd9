package structure

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

// MySQL server error numbers, see https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	mysqlBadFieldError      = 1054
	mysqlCantDropFieldOrKey = 1091
	mysqlNoSuchTable        = 1146
	mysqlBadTable           = 1051
)

// IsUndefinedObject reports whether err was raised because a table, column, index or constraint
// referred to by a statement does not exist.
func IsUndefinedObject(err error) bool {
	if err == nil {
		return false
	}
	if runerrors.IsNotFound(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn, pgerrcode.UndefinedObject:
			return true
		}
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlBadFieldError, mysqlCantDropFieldOrKey, mysqlNoSuchTable, mysqlBadTable:
			return true
		}
		return false
	}
	// modernc.org/sqlite reports these only through the message.
	message := err.Error()
	return strings.Contains(message, "no such table") ||
		strings.Contains(message, "no such column") ||
		strings.Contains(message, "no such index")
}
