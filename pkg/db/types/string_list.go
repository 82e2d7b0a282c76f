package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList persists an ordered list of strings as a JSON array in a text column,
// which keeps recipients and metric selections portable between Postgres and sqlite.
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = StringList{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return l.parse(v)
	case []byte:
		return l.parse(string(v))
	default:
		return fmt.Errorf("StringList: unsupported Scan type %T", src)
	}
}

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("StringList: marshal: %w", err)
	}
	return string(raw), nil
}

func (l *StringList) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return fmt.Errorf("StringList: parse %q: %w", s, err)
	}
	*l = StringList(out)
	return nil
}

// Contains reports whether value is present in the list.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}

// Clone returns an independent copy that is never nil.
func (l StringList) Clone() StringList {
	out := make(StringList, len(l))
	copy(out, l)
	return out
}
