package reference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/field"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

type stubRepo struct{}

func (stubRepo) NextSequenceValue(context.Context, string) (string, error) { return "42", nil }
func (stubRepo) LookupValues(_ context.Context, table string) ([]field.ValidValue, error) {
	return []field.ValidValue{{Value: table, Label: "from store"}}, nil
}

func TestLoadCatalogs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "colors.yaml", `
catalog: COLORS
values:
  - code: R
    name: Red
  - code: G
    name: Green
`)
	writeFile(t, dir, "units.yml", `
values:
  - code: KG
    name: Kilogram
`)
	writeFile(t, dir, "README.md", "ignored")

	catalogs, err := LoadCatalogs(dir)
	require.NoError(t, err)
	require.Len(t, catalogs, 2)
	assert.Equal(t, []field.ValidValue{{Value: "R", Label: "Red"}, {Value: "G", Label: "Green"}}, catalogs["COLORS"].Values)
	assert.Equal(t, "units", catalogs["units"].Name)
}

func TestLoadCatalogs_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "catalog: X\n")
	writeFile(t, dir, "b.yaml", "catalog: X\n")
	_, err := LoadCatalogs(dir)
	assert.Error(t, err)

	bad := t.TempDir()
	writeFile(t, bad, "broken.yaml", "values: [")
	_, err = LoadCatalogs(bad)
	assert.Error(t, err)

	_, err = LoadCatalogs(filepath.Join(bad, "missing"))
	assert.Error(t, err)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	r := New(map[string]Catalog{"COLORS": {Name: "COLORS", Values: []field.ValidValue{{Value: "R", Label: "Red"}}}}, stubRepo{})

	got, err := r.LookupValues(ctx, "COLORS")
	require.NoError(t, err)
	assert.Equal(t, []field.ValidValue{{Value: "R", Label: "Red"}}, got)

	got, err = r.LookupValues(ctx, "ITEMS")
	require.NoError(t, err)
	assert.Equal(t, "from store", got[0].Label)

	seq, err := r.NextSequenceValue(ctx, "ITEMS")
	require.NoError(t, err)
	assert.Equal(t, "42", seq)
	assert.Equal(t, []string{"COLORS"}, r.Names())

	alone := New(nil, nil)
	_, err = alone.LookupValues(ctx, "ITEMS")
	assert.Error(t, err)
	_, err = alone.NextSequenceValue(ctx, "ITEMS")
	assert.Error(t, err)
}
