package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fundwit/go-commons/types"
)

// FormData is the form payload submitted with a transition, stored verbatim
// as a JSON column on the transition log.
type FormData map[string]interface{}

func (d FormData) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&d)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (d *FormData) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonBytes, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonBytes)
	}
	return json.Unmarshal([]byte(jsonString), d)
}

// IDValue reads an id-valued field. JSON decoding may deliver the value as a
// number or a string, both are accepted.
func (d FormData) IDValue(field string) (types.ID, bool) {
	value, found := d[field]
	if !found || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return types.ID(v), true
	case string:
		id, err := types.ParseID(v)
		if err != nil || id == 0 {
			return 0, false
		}
		return id, true
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return types.ID(n), true
	}
	return 0, false
}
