package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	id := NewULID()
	assert.False(t, id.IsZero())
	assert.NotEqual(t, id, NewULID())
	assert.WithinDuration(t, time.Now(), id.Time(), time.Second)
}

func TestParseULID(t *testing.T) {
	original := NewULID()
	parsed, err := ParseULID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseULID("not-a-valid-ulid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ULID")
}

func TestULID_Scan(t *testing.T) {
	original := NewULID()

	tests := []struct {
		name    string
		input   any
		want    ULID
		wantErr bool
	}{
		{"string", original.String(), original, false},
		{"bytes", []byte(original.String()), original, false},
		{"nil", nil, ULID{}, false},
		{"empty", "", ULID{}, false},
		{"garbage", "zzz", ULID{}, true},
		{"wrong type", 42, ULID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u ULID
			err := u.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u)
		})
	}
}

func TestULID_Value(t *testing.T) {
	v, err := ULID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	id := NewULID()
	v, err = id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)
}

func TestULID_JSON(t *testing.T) {
	id := NewULID()
	data, err := json.Marshal(struct {
		ID ULID `json:"id"`
	}{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(data))

	var decoded struct {
		ID ULID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded.ID)
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	var b BaseModel
	require.NoError(t, b.BeforeCreate(nil))
	assert.False(t, b.ID.IsZero())

	keep := b.ID
	require.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, keep, b.ID)
}
