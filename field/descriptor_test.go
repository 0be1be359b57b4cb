package field

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/errors"
)

func TestBuilder_Limits(t *testing.T) {
	tests := []struct {
		name    string
		build   *Builder
		wantErr bool
	}{
		{"ok", TextField("Colour", "Colour of the item"), false},
		{"name too long", TextField(strings.Repeat("n", MaxNameLen+1), "x"), true},
		{"name at limit", TextField(strings.Repeat("n", MaxNameLen), "x"), false},
		{"description too long", IntField("Qty", strings.Repeat("d", MaxDescriptionLen+1)), true},
		{"bad identifier", TextField("Col our", "x"), true},
		{"text size zero", TextField("Colour", "x").Size(0), true},
		{"text size too big", TextField("Colour", "x").Size(MaxTextSize + 1), true},
		{"memo ignores size", MemoField("Notes", "x").Size(0), false},
		{"ordinal name", DateTimeField("", "auto"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.build.Descriptor()
			if tt.wantErr {
				require.Error(t, d.Err)
				assert.True(t, errors.IsErrorCode(d.Err, errors.ErrCodeSchema))
				return
			}
			assert.NoError(t, d.Err)
		})
	}
}

func TestDescriptor_Columns(t *testing.T) {
	assert.Equal(t, []string{"U_Colour"}, TextField("Colour", "").Descriptor().Columns())
	assert.Equal(t, []string{"U_3"}, IntField("", "").Descriptor().WithOrdinal(3).Columns())
	assert.Equal(t, []string{"U_4D", "U_4T"}, DateTimeField("", "").Descriptor().WithOrdinal(4).Columns())
}

// TestDescriptor_Validate 文本长度、有效值与必填
func TestDescriptor_Validate(t *testing.T) {
	colour := TextField("Colour", "Colour").Size(5).Mandatory().
		Value("RED", "Red").Value("GREEN", "Green").Descriptor()

	assert.True(t, colour.Validate("RED"))
	assert.False(t, colour.Validate("BLUE"))
	assert.False(t, colour.Validate("PURPLE"))
	assert.False(t, colour.Validate(""))
	assert.False(t, colour.Validate(nil))

	optional := TextField("Note", "Note").Size(3).Descriptor()
	assert.True(t, optional.Validate(nil))
	assert.True(t, optional.Validate("abc"))
	assert.False(t, optional.Validate("abcd"))

	memo := MemoField("Body", "Body").Descriptor()
	assert.True(t, memo.Validate(strings.Repeat("x", 10000)))

	status := IntField("Status", "Status").Value("1", "Open").Value("2", "Closed").Descriptor()
	assert.True(t, status.Validate(int64(2)))
	assert.False(t, status.Validate(int64(3)))

	assert.True(t, BoolField("Flag", "").Mandatory().Descriptor().Validate(nil))
	assert.True(t, DateField("Due", "").Mandatory().Descriptor().Validate(Sentinel))

	label, ok := colour.Label("GREEN")
	assert.True(t, ok)
	assert.Equal(t, "Green", label)
}

// TestDescriptor_DefaultCoercedLazily 默认值经本字段解析函数转换
func TestDescriptor_DefaultCoercedLazily(t *testing.T) {
	qty := IntField("Qty", "").Default("12").Descriptor()
	assert.Equal(t, int64(12), qty.DefaultValue())
	assert.Equal(t, int64(12), qty.Parse(nil))
	assert.Equal(t, int64(7), qty.Parse("7"))

	flag := BoolField("Flag", "").Default("Y").Descriptor()
	assert.Equal(t, true, flag.DefaultValue())

	none := IntField("Qty", "").Descriptor()
	assert.False(t, none.HasDefault())
	assert.Nil(t, none.DefaultValue())
}
