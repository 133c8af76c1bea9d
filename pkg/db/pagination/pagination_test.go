package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID     string
	Cursor string
}

func TestEncodeDecodeCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-04-01T00:00:00Z"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, "42", cursor.ID)
	require.Equal(t, "2026-04-01T00:00:00Z", cursor.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-base64!!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24=")
	require.Error(t, err)
}

func TestBuildCursorPageInfoDetectsMore(t *testing.T) {
	rows := []*row{
		{ID: "1", Cursor: "c1"},
		{ID: "2", Cursor: "c2"},
		{ID: "3", Cursor: "c3"},
	}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.Cursor })
	require.True(t, info.HasMore)
	require.Equal(t, "c2", info.NextPageToken)
}

func TestBuildCursorPageInfoLastPage(t *testing.T) {
	rows := []*row{
		{ID: "1", Cursor: "c1"},
		{ID: "2", Cursor: "c2"},
	}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.Cursor })
	require.False(t, info.HasMore)
	require.Equal(t, "c2", info.NextPageToken)
}

func TestBuildCursorPageInfoEmpty(t *testing.T) {
	info := BuildCursorPageInfo(nil, 2, func(r *row) string { return r.Cursor })
	require.False(t, info.HasMore)
	require.Empty(t, info.NextPageToken)
}
