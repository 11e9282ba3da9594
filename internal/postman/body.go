package postman

import (
	"bytes"
	"encoding/json"
)

const (
	BodyModeRaw        = "raw"
	BodyModeURLEncoded = "urlencoded"
	BodyModeFormData   = "formdata"
)

// Body is a request body. Only the list matching Mode is guaranteed to be
// written; an empty list for the active mode is still written as [].
type Body struct {
	Mode       string
	Raw        string
	URLEncoded []FormParam
	FormData   []FormParam
}

type FormParam struct {
	Key         string       `json:"key"`
	Value       string       `json:"value"`
	Type        string       `json:"type,omitempty"`
	Disabled    bool         `json:"disabled,omitempty"`
	Description *Description `json:"description,omitempty"`
}

type bodyJSON struct {
	Mode       string       `json:"mode"`
	Raw        *string      `json:"raw,omitempty"`
	URLEncoded *[]FormParam `json:"urlencoded,omitempty"`
	FormData   *[]FormParam `json:"formdata,omitempty"`
}

func (b Body) MarshalJSON() ([]byte, error) {
	out := bodyJSON{Mode: b.Mode}
	if b.Mode == BodyModeRaw || b.Raw != "" {
		raw := b.Raw
		out.Raw = &raw
	}
	if b.Mode == BodyModeURLEncoded || len(b.URLEncoded) > 0 {
		list := nonNilParams(b.URLEncoded)
		out.URLEncoded = &list
	}
	if b.Mode == BodyModeFormData || len(b.FormData) > 0 {
		list := nonNilParams(b.FormData)
		out.FormData = &list
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var in bodyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Body{Mode: in.Mode}
	if in.Raw != nil {
		b.Raw = *in.Raw
	}
	if in.URLEncoded != nil {
		b.URLEncoded = nonNilParams(*in.URLEncoded)
	}
	if in.FormData != nil {
		b.FormData = nonNilParams(*in.FormData)
	}
	return nil
}

func nonNilParams(p []FormParam) []FormParam {
	if p == nil {
		return []FormParam{}
	}
	return p
}
