package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Known attribute keys. Fields that are not promoted to columns travel in
// Attributes and are validated only when read through an accessor.
const (
	AttrBrand         = "brand"
	AttrSellerPrice   = "seller_price"
	AttrReturnReason  = "return_reason"
	AttrCleanReason   = "clean_reason"
	AttrReturnSubType = "return_sub_type"
	AttrEventType     = "event_type"
	AttrSourceFile    = "source_file"
)

// Attributes is the typed side channel stored as raw_json.
type Attributes map[string]string

func (a Attributes) Get(key string) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a[key])
}

// Set stores value under key, dropping blanks.
func (a Attributes) Set(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		delete(a, key)
		return
	}
	a[key] = value
}

func (a Attributes) Brand() string { return a.Get(AttrBrand) }

func (a Attributes) ReturnReason() string { return a.Get(AttrReturnReason) }

func (a Attributes) CleanReason() string { return a.Get(AttrCleanReason) }

func (a Attributes) ReturnSubType() string { return a.Get(AttrReturnSubType) }

func (a Attributes) EventType() string { return a.Get(AttrEventType) }

// SellerPrice parses the per-unit seller price. ok is false when the value is
// absent or not a number.
func (a Attributes) SellerPrice() (price decimal.Decimal, ok bool) {
	raw := strings.ReplaceAll(a.Get(AttrSellerPrice), ",", "")
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Value implements driver.Valuer so Attributes can be written to a jsonb column.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Attributes) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attributes: unsupported type %T", src)
	}

	// Values are stored as strings, but tolerate numbers written by other tools.
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	out := make(Attributes, len(generic))
	for k, v := range generic {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	*a = out
	return nil
}
