package structure

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ColumnType is a dialect-neutral column type. Dialects render it into their own syntax and
// normalise what they read back from their catalogs into one of these forms.
type ColumnType string

const (
	BigInt  ColumnType = "bigint"
	Integer ColumnType = "integer"
	Text    ColumnType = "text"
)

func Varchar(length int) ColumnType {
	return ColumnType(fmt.Sprintf("varchar(%d)", length))
}

var (
	varcharPattern = regexp.MustCompile(`^(?:varchar|character varying)\s*\((\d+)\)$`)
	intPattern     = regexp.MustCompile(`^(tinyint|smallint|mediumint|int|integer|bigint)(?:\s*\(\d+\))?(?:\s+unsigned)?$`)
)

// IsTextual reports whether values of the type are character strings.
func (t ColumnType) IsTextual() bool {
	return t == Text || varcharPattern.MatchString(string(t))
}

// normaliseType maps a catalog type name onto a ColumnType. Types with no neutral form are
// returned lower-cased.
func normaliseType(raw string, length int) ColumnType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "character varying" || s == "varchar" {
		if length > 0 {
			return Varchar(length)
		}
		return ColumnType(s)
	}
	if m := varcharPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Varchar(n)
	}
	if m := intPattern.FindStringSubmatch(s); m != nil {
		switch m[1] {
		case "bigint":
			return BigInt
		case "int", "integer":
			return Integer
		}
	}
	return ColumnType(s)
}
