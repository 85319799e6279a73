package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRewritesLimit(t *testing.T) {
	q, args := Finalize("SELECT id FROM documents WHERE municipality=? ORDER BY ctime desc LIMIT ?,?", []interface{}{"frutal", uint(20), uint(10)})
	require.Equal(t, "SELECT id FROM documents WHERE municipality=$1 ORDER BY ctime desc LIMIT $2 OFFSET $3", q)
	require.Equal(t, []interface{}{"frutal", uint(10), uint(20)}, args)
}

func TestFinalizeWithoutLimit(t *testing.T) {
	q, args := Finalize("SELECT id FROM documents WHERE id=?", []interface{}{"a"})
	require.Equal(t, "SELECT id FROM documents WHERE id=$1", q)
	require.Equal(t, []interface{}{"a"}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.True(t, IsConflict(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	require.False(t, IsConflict(&pq.Error{Code: "42P01"}))
	require.False(t, IsConflict(errors.New("other")))
}
