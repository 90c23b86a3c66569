package pgpos

import (
	"errors"
	"testing"

	"github.com/jackc/pglogrepl"
	"github.com/stretchr/testify/require"

	"github.com/javens0601/cdcpos/pkg/position"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"0/0",
		"0/15E36B0",
		"16/B374D848",
		"FFFFFFFF/FFFFFFFF",
	} {
		p, err := Parse(encoded)
		require.NoError(t, err)

		reparsed, err := Parse(p.String())
		require.NoError(t, err)
		require.Equal(t, p, reparsed)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"",
		"nope",
		"16-B374D848",
		"15E36B0",
	} {
		_, err := Parse(encoded)
		require.Error(t, err, "expected %q to fail", encoded)
		require.ErrorIs(t, err, position.ErrMalformedPosition)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := New(pglogrepl.LSN(100))
	b := New(pglogrepl.LSN(200))

	cmp, err := a.Compare(b)
	require.NoError(t, err)
	require.Equal(t, -1, cmp)

	cmp, err = b.Compare(a)
	require.NoError(t, err)
	require.Equal(t, 1, cmp)

	cmp, err = a.Compare(New(pglogrepl.LSN(100)))
	require.NoError(t, err)
	require.Equal(t, 0, cmp)
}

type otherDialectPosition struct{}

func (otherDialectPosition) String() string { return "other" }
func (otherDialectPosition) Compare(position.Position) (int, error) {
	return 0, errors.New("unused")
}

func TestCompareAcrossDialects(t *testing.T) {
	t.Parallel()

	a := New(pglogrepl.LSN(100))
	_, err := a.Compare(otherDialectPosition{})
	require.ErrorIs(t, err, position.ErrIncomparable)
}
