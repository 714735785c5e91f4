package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_PinnedLiteral(t *testing.T) {
	got, err := Format(1, "SKA", "IF", 11, 2025)
	require.NoError(t, err)
	assert.Equal(t, "001/SKA/IF/XI/2025", got)
}

func TestFormat_SeedScenario(t *testing.T) {
	got, err := Format(146, "SK", "FT", 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, "146/SK/FT/III/2025", got)
	assert.Contains(t, got, "146")
}

func TestFormat_WideSequenceNotTruncated(t *testing.T) {
	got, err := Format(1234, "SKA", "IF", 1, 2026)
	require.NoError(t, err)
	assert.Equal(t, "1234/SKA/IF/I/2026", got)
}

func TestFormat_Deterministic(t *testing.T) {
	first, err := Format(42, "SPK", "SI", 7, 2024)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Format(42, "SPK", "SI", 7, 2024)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRomanMonth_Table(t *testing.T) {
	want := []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}
	for i, w := range want {
		got, err := RomanMonth(i + 1)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err := RomanMonth(0)
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = RomanMonth(13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestFormat_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		seq   int64
		typ   string
		org   string
		month int
		year  int
		want  error
	}{
		{name: "zero seq", seq: 0, typ: "SK", org: "IF", month: 1, year: 2025, want: ErrInvalidSeq},
		{name: "empty type", seq: 1, typ: "", org: "IF", month: 1, year: 2025, want: ErrInvalidCode},
		{name: "separator in org", seq: 1, typ: "SK", org: "I/F", month: 1, year: 2025, want: ErrInvalidCode},
		{name: "bad month", seq: 1, typ: "SK", org: "IF", month: 13, year: 2025, want: ErrInvalidMonth},
		{name: "bad year", seq: 1, typ: "SK", org: "IF", month: 1, year: 25, want: ErrInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.seq, tt.typ, tt.org, tt.month, tt.year)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_InvertsFormat(t *testing.T) {
	at := time.Date(2025, time.September, 4, 10, 0, 0, 0, time.UTC)
	number, err := FormatAt(7, "SKL", "TI", at)
	require.NoError(t, err)
	assert.Equal(t, "007/SKL/TI/IX/2025", number)

	parts, err := Parse(number)
	require.NoError(t, err)
	assert.Equal(t, Parts{Seq: 7, TypeCode: "SKL", OrgCode: "TI", Month: 9, Year: 2025}, parts)
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"",
		"001/SKA/IF/XI",
		"01/SKA/IF/XI/2025",
		"abc/SKA/IF/XI/2025",
		"001/SKA/IF/XIII/2025",
		"001//IF/XI/2025",
		"001/SKA/IF/XI/25",
		"001/SKA/IF/XI/2025/extra",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidNumber, in)
	}
}
