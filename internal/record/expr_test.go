package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormula(t *testing.T) {
	e := And{
		Contains{Field: FieldTenant, Value: "recSite1"},
		Eq{Field: FieldPublished, Value: true},
	}
	assert.Equal(t, "AND(FIND('recSite1', ARRAYJOIN({Site})), {Published}=TRUE())", e.Formula())

	assert.Equal(t, "{Slug}='it\\'s'", Eq{Field: "Slug", Value: "it's"}.Formula())
	assert.Equal(t, "NOT({Published})", Eq{Field: FieldPublished, Value: false}.Formula())
	assert.Equal(t, "TRUE()", And{}.Formula())
	assert.Equal(t, "OR({A}=1, {B}=2)", Or{Eq{"A", 1}, Eq{"B", 2}}.Formula())
}

func TestMatch(t *testing.T) {
	r := Record{ID: "rec1", Fields: map[string]any{
		"Site":      []any{"recA", "recB"},
		"Published": true,
		"Slug":      "hello",
	}}

	assert.True(t, Contains{Field: "Site", Value: "recB"}.Match(r))
	assert.False(t, Contains{Field: "Site", Value: "recC"}.Match(r))
	assert.True(t, And{Eq{"Published", true}, Eq{"Slug", "hello"}}.Match(r))
	assert.False(t, Not{Eq{"Published", true}}.Match(r))
	assert.True(t, Or{Eq{"Slug", "nope"}, Eq{"Slug", "hello"}}.Match(r))
	assert.False(t, Or{}.Match(r))
	assert.True(t, And{}.Match(r))
}

func TestAccessors(t *testing.T) {
	r := Record{Fields: map[string]any{
		"Name":     []any{"Lookup value"},
		"Priority": "3",
		"Flag":     "true",
		"Images": []any{
			map[string]any{"url": "https://cdn/x.jpg", "width": 800.0},
		},
	}}

	assert.Equal(t, "Lookup value", r.String("Name"))
	assert.Equal(t, 3.0, r.Number("Priority"))
	assert.True(t, r.Bool("Flag"))
	assert.False(t, r.Bool("Missing"))
	assert.Len(t, r.Maps("Images"), 1)
	assert.Nil(t, r.Strings("Missing"))
}

func TestPermissionError(t *testing.T) {
	var err error = &QueryError{Table: TableFeatures, Err: &PermissionError{Table: TableFeatures}}
	assert.True(t, IsPermission(err))
	assert.False(t, IsPermission(&QueryError{Table: TableFeatures, Status: 500}))
}
