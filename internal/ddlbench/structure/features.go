package structure

import "strings"

// Feature is a bitmask of optional dialect capabilities.
type Feature uint16

const (
	// CHECK constraints can be added to existing tables.
	ColumnConstraints Feature = 1 << iota
	// TEXT columns can have a default value.
	DefaultValueForText
	// A table can have more than one auto-increment column.
	MultipleAutoIncrementColumns
	// Indices can be renamed in place.
	RenameIndex
	// Column type, nullability and default can be changed in place.
	AlterColumn
	// Foreign keys can be added to existing tables.
	AddForeignKey
)

var featureNames = []struct {
	feature Feature
	name    string
}{
	{ColumnConstraints, "column-constraints"},
	{DefaultValueForText, "default-value-for-text"},
	{MultipleAutoIncrementColumns, "multiple-auto-increment-columns"},
	{RenameIndex, "rename-index"},
	{AlterColumn, "alter-column"},
	{AddForeignKey, "add-foreign-key"},
}

// Has reports whether every bit of other is set in f.
func (f Feature) Has(other Feature) bool {
	return f&other == other
}

func (f Feature) String() string {
	if f == 0 {
		return "none"
	}
	names := make([]string, 0, len(featureNames))
	for _, fn := range featureNames {
		if f.Has(fn.feature) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
