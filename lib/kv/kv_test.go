package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabase(t *testing.T) {
	db, err := NewDatabase("")
	require.NoError(t, err)
	defer db.Close()

	ok, err := db.Has([]byte("pa"))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = db.Get([]byte("pa"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("pa"), []byte("1")))
	require.NoError(t, db.Put([]byte("pb"), []byte("2")))
	require.NoError(t, db.Put([]byte("r"), []byte("3")))

	v, err := db.Get([]byte("pa"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	var keys []string
	require.NoError(t, db.Iterate([]byte("p"), func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	require.Equal(t, []string{"pa", "pb"}, keys)

	require.NoError(t, db.MultiDelete([][]byte{[]byte("pa"), []byte("pb")}))
	ok, err = db.Has([]byte("pb"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.Delete([]byte("r")))
	ok, err = db.Has([]byte("r"))
	require.NoError(t, err)
	require.False(t, ok)
}
