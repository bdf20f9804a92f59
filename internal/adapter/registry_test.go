package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownAdapters(t *testing.T) {
	for _, name := range []string{"duckdb", "sqlite", "postgres"} {
		a, err := New(Config{Type: name}, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, a.DialectName())
	}
}

func TestNew_UnknownAdapter(t *testing.T) {
	_, err := New(Config{Type: "oracle"}, nil)
	require.Error(t, err)

	var unknownErr *UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "oracle", unknownErr.Type)
	assert.Contains(t, unknownErr.Available, "duckdb")
	assert.Contains(t, unknownErr.Available, "sqlite")
	assert.Contains(t, unknownErr.Available, "postgres")
}

func TestNew_EmptyType(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestList_Sorted(t *testing.T) {
	names := List()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestColumnDefs(t *testing.T) {
	headers := []string{"id", "pickup_datetime", "vendor_id", "fare_amount"}

	t.Run("sqlite", func(t *testing.T) {
		defs := columnDefs(headers, "sqlite")
		assert.Contains(t, defs, "id INTEGER")
		assert.Contains(t, defs, "pickup_datetime TEXT")
		assert.Contains(t, defs, "vendor_id TEXT")
		assert.Contains(t, defs, "fare_amount DOUBLE")
	})

	t.Run("postgres", func(t *testing.T) {
		defs := columnDefs(headers, "postgres")
		assert.Contains(t, defs, "pickup_datetime TIMESTAMP")
		assert.Contains(t, defs, "fare_amount DOUBLE PRECISION")
	})
}
