package entity

import (
	"encoding/json"
	"fmt"
)

type Mark string

const (
	MarkX Mark = "X"
	MarkO Mark = "O"

	EmptyCell Mark = ""
)

func (that Mark) Valid() bool {
	return that == MarkX || that == MarkO
}

// Opponent - returns the other turn symbol.
func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}
	return MarkX
}

// MarshalJSON encodes an empty cell as null.
func (that Mark) MarshalJSON() ([]byte, error) {
	if that == EmptyCell {
		return []byte("null"), nil
	}

	return json.Marshal(string(that))
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = EmptyCell
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal mark: %w", err)
	}

	mark := Mark(raw)
	if mark != EmptyCell && !mark.Valid() {
		return fmt.Errorf("unknown mark %q", raw)
	}

	*that = mark

	return nil
}
