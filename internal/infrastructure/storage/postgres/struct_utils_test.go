package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type auditedRow struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type documentRow struct {
	auditedRow
	Number   int64  `db:"number"`
	Date     string `db:"date"`
	internal string `db:"-"`
	Scratch  string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[documentRow]()

	expected := []string{"created_at", "updated_at", "number", "date"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.Len(t, cols, len(expected), "untagged and db:\"-\" fields must be skipped")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := documentRow{
		auditedRow: auditedRow{CreatedAt: now, UpdatedAt: now},
		Number:     997,
		Date:       "2024-01-15",
		internal:   "hidden",
		Scratch:    "hidden",
	}

	m := StructToMap(row)

	assert.Equal(t, int64(997), m["number"])
	assert.Equal(t, "2024-01-15", m["date"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, now, m["updated_at"])
	assert.Len(t, m, 4)
}

func TestStructToMap_PointerAndNonStruct(t *testing.T) {
	row := &documentRow{Number: 1}

	m := StructToMap(row)
	assert.Equal(t, int64(1), m["number"])

	assert.Nil(t, StructToMap(42))
}
