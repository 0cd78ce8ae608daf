package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"waterwatch-server/internal/modules/readings/types"
)

// DecodeJSONPayload turns a JSON object such as {"ph":7.2,"ntu":"3.5"} into
// a Payload. Numbers keep their literal text; strings are unquoted; null is
// treated as absent. Anything after the object is rejected.
func DecodeJSONPayload(data []byte) (types.Payload, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode json body: expected an object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json body: unexpected data after object")
	}

	out := make(types.Payload, len(raw))
	for k, v := range raw {
		text := strings.TrimSpace(string(v))
		switch {
		case text == "null":
			continue
		case strings.HasPrefix(text, `"`):
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("decode field %q: %w", k, err)
			}
			text = s
		}
		if err := setField(out, k, text); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PayloadFromForm builds a Payload from form values, keeping the first value
// of each key.
func PayloadFromForm(form url.Values) (types.Payload, error) {
	out := make(types.Payload, len(form))
	for k, v := range form {
		if len(v) == 0 {
			continue
		}
		if err := setField(out, k, v[0]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// setField stores value under the lower-cased key. Keys that differ only in
// case (PH and ph) are ambiguous and rejected.
func setField(p types.Payload, key, value string) error {
	k := strings.ToLower(key)
	if _, dup := p[k]; dup {
		return fmt.Errorf("duplicate field %q", k)
	}
	p[k] = value
	return nil
}
