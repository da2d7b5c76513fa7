package models

import (
	"database/sql/driver"
	"fmt"
)

// Status marks a record as active or soft-deleted. It is stored in the
// ativo column as 0/1.
type Status int

const (
	Inativo Status = 0
	Ativo   Status = 1
)

// Scan implements sql.Scanner.
func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = Ativo
	case int64:
		if v == 0 {
			*s = Inativo
		} else {
			*s = Ativo
		}
	case bool:
		if v {
			*s = Ativo
		} else {
			*s = Inativo
		}
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if s == Ativo {
		return int64(1), nil
	}
	return int64(0), nil
}
