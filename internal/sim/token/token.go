// Package token holds the optional integer value carried by cells and the
// player's inventory slot.
package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Token is an optional non-negative integer. The zero value is empty.
type Token struct {
	Value   int
	Present bool
}

var None = Token{}

func Of(v int) Token { return Token{Value: v, Present: true} }

func (t Token) Empty() bool { return !t.Present }

// Equal reports whether both tokens are present and carry the same value.
func (t Token) Equal(o Token) bool {
	return t.Present && o.Present && t.Value == o.Value
}

// Mass is the value contributed to a sum of tokens; empty counts as zero.
func (t Token) Mass() int {
	if !t.Present {
		return 0
	}
	return t.Value
}

func (t Token) String() string {
	if !t.Present {
		return "none"
	}
	return strconv.Itoa(t.Value)
}

func (t Token) MarshalJSON() ([]byte, error) {
	if !t.Present {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(t.Value)), nil
}

func (t *Token) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = None
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if v < 0 {
		return fmt.Errorf("token: negative value %d", v)
	}
	*t = Of(v)
	return nil
}
