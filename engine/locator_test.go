package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveItems(t *testing.T, f *fixture, codes ...string) {
	t.Helper()
	for _, code := range codes {
		rec := &item{Color: "red"}
		rec.Code = code
		require.True(t, f.items.Save(context.Background(), rec))
	}
}

// coder 返回断言定位结果并取主键的函数
func coder(t *testing.T) func(rec *item, ok bool) string {
	return func(rec *item, ok bool) string {
		t.Helper()
		require.True(t, ok)
		return rec.Code
	}
}

func TestLocator_SerialUsesNumericOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codeOf := coder(t)
	saveItems(t, f, "10", "9", "11")

	assert.Equal(t, "9", codeOf(f.items.First(ctx)))
	assert.Equal(t, "11", codeOf(f.items.Last(ctx)))
	assert.Equal(t, "10", codeOf(f.items.Next(ctx, "9")))
	assert.Equal(t, "11", codeOf(f.items.Next(ctx, "10")))
	assert.Equal(t, "10", codeOf(f.items.Prev(ctx, "11")))
	assert.Equal(t, "9", codeOf(f.items.Prev(ctx, "10")))
}

func TestLocator_WrapsAtEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codeOf := coder(t)
	saveItems(t, f, "9", "10", "11")

	assert.Equal(t, "9", codeOf(f.items.Next(ctx, "11")))
	assert.Equal(t, "11", codeOf(f.items.Prev(ctx, "9")))
	assert.Equal(t, "9", codeOf(f.items.Next(ctx, "")))
	assert.Equal(t, "11", codeOf(f.items.Prev(ctx, "")))
}

func TestLocator_CurrentNeedNotExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codeOf := coder(t)
	saveItems(t, f, "2", "20", "200")

	assert.Equal(t, "20", codeOf(f.items.Next(ctx, "5")))
	assert.Equal(t, "2", codeOf(f.items.Prev(ctx, "19")))
}

func TestLocator_CurrentLongerThanStoredCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	codeOf := coder(t)
	saveItems(t, f, "9", "10", "11", "100")
	require.NoError(t, f.store.Remove(ctx, "ITEMS", "100"))

	assert.Equal(t, "9", codeOf(f.items.Next(ctx, "100")), "wraps to first")
	assert.Equal(t, "11", codeOf(f.items.Prev(ctx, "100")))
	assert.Equal(t, "11", codeOf(f.items.Prev(ctx, "1000")))
}

func TestLocator_ManualUsesLexicographicOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, code := range []string{"9", "10", "B", "A"} {
		w := &warehouse{City: "Oslo"}
		w.Code = code
		require.True(t, f.houses.Add(ctx, w))
	}

	first, ok := f.houses.First(ctx)
	require.True(t, ok)
	assert.Equal(t, "10", first.Code)
	last, ok := f.houses.Last(ctx)
	require.True(t, ok)
	assert.Equal(t, "B", last.Code)
	next, ok := f.houses.Next(ctx, "9")
	require.True(t, ok)
	assert.Equal(t, "A", next.Code)
}

func TestLocator_EmptyTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok := f.items.First(ctx)
	assert.False(t, ok)
	_, ok = f.items.Last(ctx)
	assert.False(t, ok)
	_, ok = f.items.Next(ctx, "1")
	assert.False(t, ok)
	_, ok = f.items.Prev(ctx, "1")
	assert.False(t, ok)

	_, ok = f.houses.First(ctx)
	assert.False(t, ok)
	_, ok = f.houses.Next(ctx, "A")
	assert.False(t, ok)
}

func TestLocator_DecodesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveItems(t, f, "1")

	rec, ok := f.items.First(ctx)
	require.True(t, ok)
	assert.Equal(t, "red", rec.Color)
	assert.True(t, rec.IsActive())
	assert.True(t, rec.Original().Loaded)
}

func TestOrdering_Key(t *testing.T) {
	ord := ordering{width: 3}
	assert.Equal(t, "009", ord.key("9"))
	assert.Equal(t, "123", ord.key("123"))
	assert.Equal(t, "1234", ord.key("1234"))
	assert.Equal(t, "", ordering{}.key(""))
}

func TestOrdering_FitWidensToCurrent(t *testing.T) {
	ord := ordering{expr: "pad2", width: 2, pad: func(w int) string { return fmt.Sprintf("pad%d", w) }}

	wide := ord.fit("100")
	assert.Equal(t, 3, wide.width)
	assert.Equal(t, "pad3", wide.expr)
	assert.Equal(t, "011", wide.key("11"))

	assert.Equal(t, ord.expr, ord.fit("7").expr)
	plain := ordering{expr: "code"}
	assert.Equal(t, plain.expr, plain.fit("ABCDEF").expr, "non-serial ordering is not padded")
}
