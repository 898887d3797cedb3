package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexFloat decodes a JSON number or a numeric string. Upstream APIs are not
// consistent about which they send.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse numeric string %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Ptr returns the value as *float64, nil when f is nil.
func (f *FlexFloat) Ptr() *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

// Value returns the value or 0 when f is nil.
func (f *FlexFloat) Value() float64 {
	if f == nil {
		return 0
	}
	return float64(*f)
}

// DecodeRecords unmarshals each raw record into T on its own so one bad
// field costs only its record. next is copied into the returned page.
func DecodeRecords[T any](raw []json.RawMessage, next string) Page[T] {
	page := Page[T]{Items: make([]T, 0, len(raw)), Next: next}
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			page.Malformed++
			if page.DecodeErr == nil {
				page.DecodeErr = fmt.Errorf("record %d: %w", i, err)
			}
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// ParseTime parses the timestamp formats seen upstream. It returns nil for
// empty or unparseable input.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
