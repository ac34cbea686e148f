package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexBool is a bool that can be unmarshaled from a JSON boolean, number or string.
// Multipart forms deliver flags like changedThumbnail as "true"/"false" strings.
type FlexBool bool

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexBool) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexBool(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return f.UnmarshalText([]byte(s))
	}

	return fmt.Errorf("FlexBool: unexpected type, expected boolean, number or string")
}

// UnmarshalText parses the textual form used by query strings and form fields.
func (f *FlexBool) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*f = false
		return nil
	}
	val, err := strconv.ParseBool(string(text))
	if err != nil {
		return fmt.Errorf("FlexBool: invalid boolean %q: %w", string(text), err)
	}
	*f = FlexBool(val)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// Bool converts FlexBool back to bool.
func (f FlexBool) Bool() bool {
	return bool(f)
}
