package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableCloneIsDeep(t *testing.T) {
	src := NewTable("ITEM", "DESCRIÇÃO")
	src.Append(Row{"ITEM": "1", "DESCRIÇÃO": "dipirona"})

	cp := src.Clone()
	cp.AddColumn("extra")
	cp.Rows[0]["ITEM"] = "2"

	require.Equal(t, []string{"ITEM", "DESCRIÇÃO"}, src.Columns)
	require.Equal(t, "1", src.Rows[0]["ITEM"])
	require.Equal(t, 1, cp.Len())
}

func TestTableAddColumnOnce(t *testing.T) {
	tb := NewTable("a")
	tb.AddColumn("b")
	tb.AddColumn("b")
	require.Equal(t, []string{"a", "b"}, tb.Columns)
	var nilTable *Table
	require.Equal(t, 0, nilTable.Len())
}
