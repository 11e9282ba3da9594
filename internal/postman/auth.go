package postman

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Auth types defined by the collection schemas.
const (
	AuthNoAuth   = "noauth"
	AuthBasic    = "basic"
	AuthOAuth2   = "oauth2"
	AuthBearer   = "bearer"
	AuthAWSv4    = "awsv4"
	AuthDigest   = "digest"
	AuthHawk     = "hawk"
	AuthOAuth1   = "oauth1"
	AuthNTLM     = "ntlm"
	AuthAPIKey   = "apikey"
	AuthEdgeGrid = "edgegrid"
)

// Auth is a request or collection auth block. Attributes keep their order
// and Style decides whether they serialize as an object or a key/value list.
type Auth struct {
	Type       string
	Attributes []AuthAttribute
	Style      AuthStyle
}

type AuthAttribute struct {
	Key   string
	Value any
}

func NewAuth(typ string, style AuthStyle, attrs ...AuthAttribute) *Auth {
	return &Auth{Type: typ, Style: style, Attributes: attrs}
}

// Attr looks up an attribute by key.
func (a *Auth) Attr(key string) (any, bool) {
	for _, at := range a.Attributes {
		if at.Key == key {
			return at.Value, true
		}
	}
	return nil, false
}

type listAttr struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

func (a Auth) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	if err := writeJSON(&buf, a.Type); err != nil {
		return nil, err
	}
	if a.Type != AuthNoAuth {
		buf.WriteByte(',')
		if err := writeJSON(&buf, a.Type); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		var err error
		if a.Style == AuthStyleList {
			err = a.writeList(&buf)
		} else {
			err = a.writeObject(&buf)
		}
		if err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a Auth) writeObject(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, at := range a.Attributes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, at.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeJSON(buf, at.Value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (a Auth) writeList(buf *bytes.Buffer) error {
	list := make([]listAttr, 0, len(a.Attributes))
	for _, at := range a.Attributes {
		list = append(list, listAttr{Key: at.Key, Value: at.Value, Type: "string"})
	}
	return writeJSON(buf, list)
}

// UnmarshalJSON accepts both attribute layouts and records which one it saw.
func (a *Auth) UnmarshalJSON(data []byte) error {
	var head map[string]json.RawMessage
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	rawType, ok := head["type"]
	if !ok {
		return errors.New("auth: missing type")
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return fmt.Errorf("auth: type: %w", err)
	}
	*a = Auth{Type: typ}
	body, ok := head[typ]
	if !ok {
		return nil
	}
	body = bytes.TrimSpace(body)
	switch {
	case len(body) > 0 && body[0] == '[':
		var list []listAttr
		if err := json.Unmarshal(body, &list); err != nil {
			return fmt.Errorf("auth: %s: %w", typ, err)
		}
		a.Style = AuthStyleList
		for _, at := range list {
			a.Attributes = append(a.Attributes, AuthAttribute{Key: at.Key, Value: at.Value})
		}
	case len(body) > 0 && body[0] == '{':
		attrs, err := orderedObject(body)
		if err != nil {
			return fmt.Errorf("auth: %s: %w", typ, err)
		}
		a.Style = AuthStyleObject
		a.Attributes = attrs
	}
	return nil
}

// orderedObject decodes a JSON object keeping member order.
func orderedObject(data []byte) ([]AuthAttribute, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []AuthAttribute
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, AuthAttribute{Key: key, Value: v})
	}
	return out, nil
}
