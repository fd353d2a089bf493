package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/teranos/entorm/errors"
)

// MarshalJSON renders v as indented JSON, or compact JSON when compact is set.
func MarshalJSON(v any, compact bool) ([]byte, error) {
	if compact {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// WriteJSON writes v to w followed by a newline.
func WriteJSON(w io.Writer, v any, compact bool) error {
	data, err := MarshalJSON(v, compact)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
