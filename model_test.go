package esmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/esmodel/schema"
)

// shirt is the mapped document the package tests share. Model is optional so
// the tests can exercise absent-field handling.
type shirt struct {
	Base
	Timestamp time.Time `json:"timestamp"`
	Brand     string    `json:"brand"`
	Color     string    `json:"color"`
	Model     string    `json:"model,omitempty"`
}

func shirtMapping() Mapping {
	return Mapping{
		Index:            "shirts",
		Version:          1,
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		SourceEnabled:    SourceStorage(true),
		Schema: schema.Schema{
			"timestamp": schema.Date{},
			"brand":     schema.Keyword{},
			"color":     schema.Keyword{},
			"model":     schema.Optional(schema.Keyword{}),
		},
	}
}

func newShirtMapper(t *testing.T, backend Backend) *Mapper[shirt, *shirt] {
	t.Helper()
	mapper, err := NewMapper[shirt](backend, shirtMapping(), nil)
	require.NoError(t, err)
	return mapper
}

func TestMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mapping Mapping
		wantErr error
	}{
		{
			name:    "valid",
			mapping: shirtMapping(),
		},
		{
			name:    "missing index",
			mapping: Mapping{Schema: schema.Schema{"brand": schema.Keyword{}}},
			wantErr: ErrMissingIndex,
		},
		{
			name:    "empty schema",
			mapping: Mapping{Index: "shirts"},
			wantErr: ErrEmptySchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBaseCarriesID(t *testing.T) {
	var doc shirt
	assert.Empty(t, doc.GetID())

	doc.SetID("id-42")
	assert.Equal(t, "id-42", doc.GetID())
}

func TestRefreshKeyword(t *testing.T) {
	enabled := true
	disabled := false

	assert.Equal(t, "wait_for", refreshKeyword(nil))
	assert.Equal(t, "true", refreshKeyword(&enabled))
	assert.Equal(t, "false", refreshKeyword(&disabled))
}

func TestWriteOptions(t *testing.T) {
	o := applyWriteOptions([]WriteOption{WithIndex("other"), WithRefresh(true)})
	assert.Equal(t, "other", o.indexOr("shirts"))
	require.NotNil(t, o.refresh)
	assert.True(t, *o.refresh)

	o = applyWriteOptions(nil)
	assert.Equal(t, "shirts", o.indexOr("shirts"))
	assert.Nil(t, o.refresh)
}
