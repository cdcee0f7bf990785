// models/types.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SourceDateLayout is the MM/DD/YYYY form used in the archive's flat files.
	SourceDateLayout = "01/02/2006"
	// StoreDateLayout is how dates are persisted.
	StoreDateLayout = "2006-01-02"
)

// Date is a calendar date column. The zero value is the empty-date sentinel
// and is stored as NULL.
type Date struct {
	Time  time.Time
	Valid bool
}

// UnmarshalCSV implements csvutil.Unmarshaler.
func (d *Date) UnmarshalCSV(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(SourceDateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = Date{Time: t, Valid: true}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time.Format(StoreDateLayout), nil
}

// Scan implements sql.Scanner. It accepts the stored text form as well as
// time.Time, which the mysql driver returns for DATE columns with parseTime.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{Time: v, Valid: true}
		return nil
	case []byte:
		return d.parseStored(string(v))
	case string:
		return d.parseStored(v)
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) parseStored(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(StoreDateLayout) {
		s = s[:len(StoreDateLayout)]
	}
	t, err := time.Parse(StoreDateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	*d = Date{Time: t, Valid: true}
	return nil
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(StoreDateLayout)
}

// MarshalText renders the stored form for JSON output.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	return d.parseStored(string(b))
}

// NullInt is an optional integer column.
type NullInt struct {
	Int64 int64
	Valid bool
}

func (n *NullInt) UnmarshalCSV(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" {
		*n = NullInt{}
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*n = NullInt{Int64: v, Valid: true}
	return nil
}

func (n NullInt) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Int64, nil
}

func (n *NullInt) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = NullInt{}
		return nil
	case int64:
		*n = NullInt{Int64: v, Valid: true}
		return nil
	case []byte:
		return n.UnmarshalCSV(v)
	case string:
		return n.UnmarshalCSV([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into NullInt", src)
}

func (n NullInt) MarshalText() ([]byte, error) {
	if !n.Valid {
		return []byte{}, nil
	}
	return strconv.AppendInt(nil, n.Int64, 10), nil
}

func (n *NullInt) UnmarshalText(b []byte) error {
	return n.UnmarshalCSV(b)
}

// Flag is a Y/N indicator column. Empty is NULL.
type Flag struct {
	Bool  bool
	Valid bool
}

func (f *Flag) UnmarshalCSV(data []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(data))) {
	case "":
		*f = Flag{}
	case "Y", "T", "1":
		*f = Flag{Bool: true, Valid: true}
	case "N", "F", "0":
		*f = Flag{Bool: false, Valid: true}
	default:
		return fmt.Errorf("invalid flag %q", string(data))
	}
	return nil
}

func (f Flag) Value() (driver.Value, error) {
	if !f.Valid {
		return nil, nil
	}
	if f.Bool {
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Flag{}
		return nil
	case int64:
		*f = Flag{Bool: v != 0, Valid: true}
		return nil
	case bool:
		*f = Flag{Bool: v, Valid: true}
		return nil
	case []byte:
		return f.UnmarshalCSV(v)
	case string:
		return f.UnmarshalCSV([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into Flag", src)
}

func (f Flag) String() string {
	switch {
	case !f.Valid:
		return ""
	case f.Bool:
		return "Y"
	default:
		return "N"
	}
}

func (f Flag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
