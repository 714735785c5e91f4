// Package numbering renders and parses official document numbers of the form
//
//	{seq}/{typeCode}/{orgCode}/{monthRoman}/{year}
//
// for example 001/SKA/IF/XI/2025. Format and Parse share the separator and
// field order below.
package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Separator = "/"
	seqWidth  = 3
	numParts  = 5
)

var romanMonths = [12]string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

var (
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrInvalidSeq    = errors.New("sequence must be positive")
	ErrInvalidCode   = errors.New("code must be non-empty and must not contain the separator")
	ErrInvalidNumber = errors.New("invalid document number")
)

type Parts struct {
	Seq      int64
	TypeCode string
	OrgCode  string
	Month    int
	Year     int
}

func RomanMonth(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return romanMonths[month-1], nil
}

func monthFromRoman(roman string) (int, bool) {
	for i, r := range romanMonths {
		if r == roman {
			return i + 1, true
		}
	}
	return 0, false
}

// Format renders a document number. Sequences wider than three digits are
// written in full.
func Format(seq int64, typeCode, orgCode string, month, year int) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSeq, seq)
	}
	if err := checkCode(typeCode); err != nil {
		return "", fmt.Errorf("type code: %w", err)
	}
	if err := checkCode(orgCode); err != nil {
		return "", fmt.Errorf("org code: %w", err)
	}
	roman, err := RomanMonth(month)
	if err != nil {
		return "", err
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidNumber, year)
	}
	return strings.Join([]string{
		fmt.Sprintf("%0*d", seqWidth, seq),
		typeCode,
		orgCode,
		roman,
		strconv.Itoa(year),
	}, Separator), nil
}

// FormatAt is Format with month and year taken from t.
func FormatAt(seq int64, typeCode, orgCode string, t time.Time) (string, error) {
	return Format(seq, typeCode, orgCode, int(t.Month()), t.Year())
}

func Parse(number string) (Parts, error) {
	fields := strings.Split(number, Separator)
	if len(fields) != numParts {
		return Parts{}, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidNumber, numParts, len(fields))
	}
	if len(fields[0]) < seqWidth {
		return Parts{}, fmt.Errorf("%w: sequence %q", ErrInvalidNumber, fields[0])
	}
	seq, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || seq <= 0 {
		return Parts{}, fmt.Errorf("%w: sequence %q", ErrInvalidNumber, fields[0])
	}
	if fields[1] == "" || fields[2] == "" {
		return Parts{}, fmt.Errorf("%w: empty code", ErrInvalidNumber)
	}
	month, ok := monthFromRoman(fields[3])
	if !ok {
		return Parts{}, fmt.Errorf("%w: month %q", ErrInvalidNumber, fields[3])
	}
	year, err := strconv.Atoi(fields[4])
	if err != nil || len(fields[4]) != 4 {
		return Parts{}, fmt.Errorf("%w: year %q", ErrInvalidNumber, fields[4])
	}
	return Parts{
		Seq:      seq,
		TypeCode: fields[1],
		OrgCode:  fields[2],
		Month:    month,
		Year:     year,
	}, nil
}

func checkCode(code string) error {
	if strings.TrimSpace(code) == "" || strings.Contains(code, Separator) {
		return ErrInvalidCode
	}
	return nil
}
