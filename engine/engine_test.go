package engine

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/cache"
	core "udtkit/data/db"
	"udtkit/data/db/basic"
	"udtkit/data/orm"
	"udtkit/entity"
	"udtkit/errors"
	"udtkit/field"
	"udtkit/invalidate"
	"udtkit/logging"
	"udtkit/meta"
	"udtkit/schema"
	"udtkit/store"
	"udtkit/store/sqlstore"
)

type item struct {
	entity.Base
	entity.DateAudit
	entity.UserAudit
	entity.SoftDelete

	Color     string
	Qty       *int64
	Due       time.Time
	Warehouse string
	Grade     string
}

func (*item) Describe(b *meta.Builder[item]) {
	b.Table(meta.TableDescriptor{Name: "ITEMS", Description: "Items", Strategy: meta.Serial, Kind: meta.MasterData})
	meta.String(b, "Color", field.TextField("Color", "Color").Size(10).Mandatory(), func(m *item) *string { return &m.Color })
	meta.NullInt(b, "Qty", field.IntField("Qty", "Quantity").Default(5), func(m *item) **int64 { return &m.Qty })
	meta.Time(b, "Due", field.DateTimeField("Due", "Due"), func(m *item) *time.Time { return &m.Due })
	meta.String(b, "Warehouse", field.TextField("Warehouse", "Warehouse").LinkTable("WAREHOUSES"), func(m *item) *string { return &m.Warehouse })
	meta.String(b, "Grade", field.TextField("Grade", "Grade").Value("A", "First").Value("B", "Second"), func(m *item) *string { return &m.Grade })
}

type warehouse struct {
	entity.Base
	City string
}

func (*warehouse) Describe(b *meta.Builder[warehouse]) {
	b.Table(meta.TableDescriptor{Name: "WAREHOUSES", Description: "Warehouses", Strategy: meta.Manual})
	meta.String(b, "City", field.TextField("City", "City"), func(m *warehouse) *string { return &m.City })
}

type note struct {
	entity.Base
	Body string
}

func (*note) Describe(b *meta.Builder[note]) {
	b.Table(meta.TableDescriptor{Name: "NOTES", Description: "Notes", Strategy: meta.RandomUnique})
	meta.String(b, "Body", field.MemoField("", "Body"), func(m *note) *string { return &m.Body })
}

type recorder struct {
	mu      sync.Mutex
	changes []invalidate.Change
}

func (r *recorder) Invalidate(_ context.Context, change invalidate.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recorder) Changes() []invalidate.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invalidate.Change(nil), r.changes...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	registry *meta.Registry
	store    *sqlstore.Store
	logger   *logging.MemoryLogger
	clock    *clock
	changes  *recorder
	items    *Engine[item, *item]
	houses   *Engine[warehouse, *warehouse]
	notes    *Engine[note, *note]
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := basic.Open(core.DBConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "engine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		registry: meta.NewRegistry(meta.WithLogger(logging.NewNoopLogger())),
		store:    sqlstore.New(db, sqlstore.WithLogger(logging.NewNoopLogger())),
		logger:   logging.NewMemoryLogger(),
		clock:    &clock{now: time.Date(2024, 3, 1, 9, 30, 42, 0, time.UTC)},
		changes:  &recorder{},
	}
	base := []Option{
		WithRepository(f.store),
		WithClock(f.clock.Now),
		WithUser("system"),
		WithLogger(f.logger),
		WithInvalidator(f.changes),
	}
	base = append(base, opts...)

	f.items, err = New[item](f.registry, f.store, base...)
	require.NoError(t, err)
	f.houses, err = New[warehouse](f.registry, f.store, base...)
	require.NoError(t, err)
	f.notes, err = New[note](f.registry, f.store, base...)
	require.NoError(t, err)

	stmts := schema.Generate(f.store.Dialect(), f.registry.Schemas()...)
	require.NoError(t, schema.Apply(ctx, db, stmts, logging.NewNoopLogger()))
	return f
}

func TestNew_RejectsMissingCollaborators(t *testing.T) {
	_, err := New[item](nil, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeUsage))
}

func TestAdd_SerialWithAudit(t *testing.T) {
	f := newFixture(t)
	ctx := ContextWithUser(context.Background(), "alice")

	first := &item{Color: "red"}
	require.True(t, f.items.Add(ctx, first))
	assert.Equal(t, "1", first.Code)
	assert.Equal(t, "1", first.Name)
	assert.True(t, first.IsActive())
	assert.Equal(t, "alice", first.CreatedBy)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), first.CreatedAt)
	require.NotNil(t, first.Qty)
	assert.Equal(t, int64(5), *first.Qty)
	assert.True(t, first.Original().Loaded)

	second := &item{Color: "blue"}
	second.Name = "Second"
	require.True(t, f.items.Add(context.Background(), second))
	assert.Equal(t, "2", second.Code)
	assert.Equal(t, "Second", second.Name)
	assert.Equal(t, "system", second.CreatedBy)

	got, ok := f.items.Get(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, "red", got.Color)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.Equal(t, first.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.True(t, got.IsActive())
	assert.Equal(t, field.Sentinel, got.Due)
	assert.Equal(t, entity.Snapshot{Code: "1", Active: true, CreatedAt: first.CreatedAt, CreatedBy: "alice", Loaded: true}, got.Original())
}

func TestSave_RoundTripsDateTimePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := time.Date(2024, 2, 29, 17, 45, 0, 0, time.UTC)
	rec := &item{Color: "red", Due: due}
	require.True(t, f.items.Add(ctx, rec))

	row, err := f.store.GetByKey(ctx, "ITEMS", rec.Code)
	require.NoError(t, err)
	assert.Equal(t, "20240229", row["U_DueDate"])
	assert.Equal(t, "1745", row["U_DueTime"])
	assert.Equal(t, "Y", row["U_Active"])
	assert.Equal(t, "5", row["U_Qty"])

	got, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	assert.Equal(t, due, got.Due)
}

func TestSave_InvalidFieldShortCircuits(t *testing.T) {
	var notified []InvalidField
	f := newFixture(t, OnInvalidField(func(_ context.Context, inv InvalidField) {
		notified = append(notified, inv)
	}))
	ctx := context.Background()

	rec := &item{}
	rec.Code = "1"
	assert.False(t, f.items.Save(ctx, rec))
	require.Len(t, notified, 1)
	assert.Equal(t, "Color", notified[0].Member)
	assert.Equal(t, "ITEMS", notified[0].Table)
	assert.True(t, errors.IsErrorCode(rec.Err(), errors.ErrCodeValidation))

	rec.Color = "far-too-long-color"
	assert.False(t, f.items.Add(ctx, rec))

	rec.Color = "red"
	rec.Grade = "Z"
	assert.False(t, f.items.Save(ctx, rec))
	assert.Equal(t, "Grade", notified[len(notified)-1].Member)

	all, ok := f.items.GetAll(ctx)
	require.True(t, ok)
	assert.Empty(t, all)
	assert.Empty(t, f.changes.Changes())
}

func TestSave_DefaultInvalidFieldHandlerLogs(t *testing.T) {
	f := newFixture(t)
	rec := &item{}
	rec.Code = "1"
	assert.False(t, f.items.Save(context.Background(), rec))

	entries := f.logger.Find(logging.InfoLevel, "invalid field")
	require.Len(t, entries, 1)
	member, _ := entries[0].Field("member")
	assert.Equal(t, "Color", member)
}

func TestSave_RequiresCode(t *testing.T) {
	f := newFixture(t)
	rec := &item{Color: "red"}
	assert.False(t, f.items.Save(context.Background(), rec))
	assert.True(t, stdErrors.Is(rec.Err(), entity.ErrCodeNotSet))
	assert.Len(t, f.logger.Find(logging.WarnLevel, "key error"), 1)
}

func TestSave_InsertsThenUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &item{Color: "red"}
	rec.Code = "7"
	require.True(t, f.items.Save(ctx, rec))

	rec.Color = "green"
	rec.Name = "Seven"
	require.True(t, f.items.Save(ctx, rec))

	got, ok := f.items.Get(ctx, "7")
	require.True(t, ok)
	assert.Equal(t, "green", got.Color)
	assert.Equal(t, "Seven", got.Name)

	all, ok := f.items.GetAll(ctx)
	require.True(t, ok)
	assert.Len(t, all, 1)
}

func TestAdd_ManualStrategy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := &warehouse{City: "Oslo"}
	assert.False(t, f.houses.Add(ctx, missing))
	assert.True(t, stdErrors.Is(missing.Err(), entity.ErrCodeNotSet))

	w := &warehouse{City: "Oslo"}
	w.Code = "W1"
	require.True(t, f.houses.Add(ctx, w))
	assert.Equal(t, "W1", w.Name)

	dup := &warehouse{City: "Bergen"}
	dup.Code = "W1"
	assert.False(t, f.houses.Add(ctx, dup))
	assert.True(t, stdErrors.Is(dup.Err(), entity.ErrAlreadyExists))
	assert.Equal(t, "W1", dup.Code)
	assert.Empty(t, dup.Name)
}

func TestAdd_RandomUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		n := &note{Body: "memo"}
		require.True(t, f.notes.Add(ctx, n))
		assert.NotEmpty(t, n.Code)
		assert.False(t, seen[n.Code])
		seen[n.Code] = true
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Insert(context.Context, string, store.Values) error {
	return errors.NewError(errors.ErrCodeStore, "disk full")
}

func (failingStore) LastError() (int, string) {
	return 13, "database or disk is full"
}

func TestAdd_RollsBackGeneratedCodeOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	logger := logging.NewMemoryLogger()
	notes, err := New[note](f.registry, failingStore{f.store}, WithLogger(logger))
	require.NoError(t, err)

	n := &note{Body: "memo"}
	assert.False(t, notes.Add(context.Background(), n))
	assert.Empty(t, n.Code)
	assert.Empty(t, n.Name)
	assert.True(t, errors.IsErrorCode(n.Err(), errors.ErrCodeStore))

	entries := logger.Find(logging.ErrorLevel, "store operation failed")
	require.Len(t, entries, 1)
	code, _ := entries[0].Field("store_code")
	assert.Equal(t, 13, code)
	msg, _ := entries[0].Field("store_message")
	assert.Equal(t, "database or disk is full", msg)
}

func TestUpdate_ItemNotFound(t *testing.T) {
	f := newFixture(t)
	rec := &item{Color: "red"}
	rec.Code = "42"
	assert.False(t, f.items.Update(context.Background(), rec))
	assert.True(t, stdErrors.Is(rec.Err(), entity.ErrItemNotFound))
	assert.True(t, entity.IsKeyError(rec.Err()))
}

func TestUpdate_PreservesCreationAudit(t *testing.T) {
	f := newFixture(t)
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	rec := &item{Color: "red"}
	require.True(t, f.items.Add(ContextWithUser(context.Background(), "alice"), rec))

	loaded, ok := f.items.Get(context.Background(), rec.Code)
	require.True(t, ok)

	f.clock.Set(time.Date(2024, 4, 2, 10, 15, 0, 0, time.UTC))
	loaded.Code = "999"
	loaded.CreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	loaded.CreatedBy = "mallory"
	loaded.Color = "blue"
	require.True(t, f.items.Update(ContextWithUser(context.Background(), "bob"), loaded))
	assert.Equal(t, rec.Code, loaded.Code)

	got, ok := f.items.Get(context.Background(), rec.Code)
	require.True(t, ok)
	assert.Equal(t, "blue", got.Color)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, time.Date(2024, 4, 2, 10, 15, 0, 0, time.UTC), got.UpdatedAt)
	assert.Equal(t, "bob", got.UpdatedBy)

	_, ok = f.items.Get(context.Background(), "999")
	assert.False(t, ok)
}

func TestUpdate_DefaultsOnlyFillMandatoryFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &item{Color: "red"}
	require.True(t, f.items.Add(ctx, rec))

	rec.Qty = nil
	require.True(t, f.items.Update(ctx, rec))
	row, err := f.store.GetByKey(ctx, "ITEMS", rec.Code)
	require.NoError(t, err)
	assert.Equal(t, "0", row["U_Qty"])
}

func TestDelete_SoftDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &item{Color: "red"}
	require.True(t, f.items.Add(ctx, rec))

	assert.True(t, f.items.Delete(ctx, rec))
	assert.True(t, f.items.Delete(ctx, rec))
	assert.False(t, rec.IsActive())

	got, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	assert.False(t, got.IsActive())
	assert.False(t, got.Original().Active)

	require.True(t, f.items.Restore(ctx, got))
	again, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	assert.True(t, again.IsActive())
}

func TestUpdate_KeepsActiveFlagWhenUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &item{Color: "red"}
	require.True(t, f.items.Add(ctx, rec))
	require.True(t, f.items.Delete(ctx, rec))

	loaded, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	loaded.Color = "blue"
	require.True(t, f.items.Update(ctx, loaded))

	got, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	assert.False(t, got.IsActive())
	assert.Equal(t, "blue", got.Color)
}

func TestDelete_PhysicalRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := &note{Body: "memo"}
	require.True(t, f.notes.Add(ctx, n))
	code := n.Code

	require.True(t, f.notes.Delete(ctx, n))
	assert.False(t, n.Original().Loaded)
	_, ok := f.notes.Get(ctx, code)
	assert.False(t, ok)
	assert.Contains(t, f.changes.Changes(), invalidate.Change{Table: "NOTES", Code: code})

	empty := &note{}
	assert.False(t, f.notes.Delete(ctx, empty))
	assert.True(t, stdErrors.Is(empty.Err(), entity.ErrCodeNotSet))
}

func TestGetAll_OrdersActiveFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, code := range []string{"3", "1", "2"} {
		rec := &item{Color: "red"}
		rec.Code = code
		require.True(t, f.items.Save(ctx, rec))
	}
	gone, ok := f.items.Get(ctx, "1")
	require.True(t, ok)
	require.True(t, f.items.Delete(ctx, gone))

	all, ok := f.items.GetAll(ctx)
	require.True(t, ok)
	var codes []string
	for _, rec := range all {
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []string{"2", "3", "1"}, codes)
}

func TestGetAll_WithQueryOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, color := range []string{"red", "blue", "red"} {
		rec := &item{Color: color}
		rec.Name = color + string(rune('a'+i))
		require.True(t, f.items.Add(ctx, rec))
	}

	reds, ok := f.items.GetAll(ctx, orm.WithWhere(`"U_Color" = ?`, "red"))
	require.True(t, ok)
	assert.Len(t, reds, 2)

	page, ok := f.items.GetAll(ctx, orm.WithOrderBy("Code", true), orm.WithLimit(1))
	require.True(t, ok)
	require.Len(t, page, 1)
	assert.Equal(t, "3", page[0].Code)
}

func TestGetAll_PagesInCodeOrderByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saveItems(t, f, "3", "1", "4", "2")

	codes := func(records []*item) []string {
		var out []string
		for _, r := range records {
			out = append(out, r.Code)
		}
		return out
	}

	page, ok := f.items.GetAll(ctx, orm.WithLimit(2))
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, codes(page))

	page, ok = f.items.GetAll(ctx, orm.WithLimit(2), orm.WithOffset(2))
	require.True(t, ok)
	assert.Equal(t, []string{"3", "4"}, codes(page))
}

func TestGet_DecodeFallbackIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := store.Values{Code: "5", Name: "legacy"}
	v.Add("U_Color", "red")
	v.Add("U_Qty", "many")
	v.Add("U_DueDate", "not-a-date")
	v.Add("U_DueTime", "2361")
	v.Add("U_Active", "Y")
	require.NoError(t, f.store.Insert(ctx, "ITEMS", v))

	got, ok := f.items.Get(ctx, "5")
	require.True(t, ok)
	assert.Equal(t, field.Sentinel, got.Due)
	require.NotNil(t, got.Qty)
	assert.Equal(t, int64(0), *got.Qty)
	assert.NotEmpty(t, f.logger.Find(logging.WarnLevel, "field decode fallback"))
}

func TestGet_Missing(t *testing.T) {
	f := newFixture(t)
	_, ok := f.items.Get(context.Background(), "nope")
	assert.False(t, ok)
	_, ok = f.items.Get(context.Background(), "")
	assert.False(t, ok)
	assert.Empty(t, f.logger.Find(logging.ErrorLevel, "get failed"))
}

func TestGet_RowCacheIsEvictedOnSave(t *testing.T) {
	rows := cache.New[string, store.Row](cache.Config{Name: "rows", MaxSize: 16})
	f := newFixture(t, WithRowCache(rows))
	ctx := context.Background()

	rec := &item{Color: "red"}
	require.True(t, f.items.Add(ctx, rec))
	_, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	_, cached := rows.Get(invalidate.Key("ITEMS", rec.Code))
	assert.True(t, cached)

	rec.Color = "blue"
	require.True(t, f.items.Save(ctx, rec))
	_, cached = rows.Get(invalidate.Key("ITEMS", rec.Code))
	assert.False(t, cached)

	got, ok := f.items.Get(ctx, rec.Code)
	require.True(t, ok)
	assert.Equal(t, "blue", got.Color)
	assert.Contains(t, f.changes.Changes(), invalidate.Change{Table: "ITEMS", Code: rec.Code})
}

func TestSave_RenamedRecordInvalidatesBothCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := &warehouse{City: "Oslo"}
	w.Code = "W1"
	require.True(t, f.houses.Add(ctx, w))

	w.Code = "W2"
	require.True(t, f.houses.Save(ctx, w))
	changes := f.changes.Changes()
	assert.Contains(t, changes, invalidate.Change{Table: "WAREHOUSES", Code: "W1"})
	assert.Contains(t, changes, invalidate.Change{Table: "WAREHOUSES", Code: "W2"})
	assert.Equal(t, "W2", w.Original().Code)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, code := range []string{"W2", "W1"} {
		w := &warehouse{City: "Oslo"}
		w.Code = code
		w.Name = "House " + code
		require.True(t, f.houses.Add(ctx, w))
	}

	values, err := f.items.Lookup(ctx, "Warehouse")
	require.NoError(t, err)
	assert.Equal(t, []field.ValidValue{{Value: "W1", Label: "House W1"}, {Value: "W2", Label: "House W2"}}, values)

	grades, err := f.items.Lookup(ctx, "Grade")
	require.NoError(t, err)
	assert.Len(t, grades, 2)

	none, err := f.items.Lookup(ctx, "Color")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.items.Lookup(ctx, "Missing")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))
}
