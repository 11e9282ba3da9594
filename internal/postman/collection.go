// Package postman models Postman collection and environment documents.
package postman

import (
	"net/url"
	"strings"
)

// Collection is the root of an output document.
type Collection struct {
	Info  Info    `json:"info"`
	Item  []*Item `json:"item"`
	Event []Event `json:"event,omitempty"`
}

type Info struct {
	PostmanID   string       `json:"_postman_id,omitempty"`
	Name        string       `json:"name"`
	Description *Description `json:"description,omitempty"`
	Schema      string       `json:"schema"`
}

// Description is the object form of a Postman description.
type Description struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

func Markdown(content string) *Description {
	return &Description{Content: content, Type: "text/markdown"}
}

// Item is either a folder (Item set) or a request (Request set).
type Item struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Item        []*Item    `json:"item,omitempty"`
	Request     *Request   `json:"request,omitempty"`
	Response    []Response `json:"response,omitempty"`
	Event       []Event    `json:"event,omitempty"`
}

func (i *Item) IsFolder() bool { return i.Request == nil }

// Response is a saved example response. Conversion never produces any.
type Response map[string]any

type Request struct {
	URL         *URL     `json:"url"`
	Method      string   `json:"method"`
	Header      []Header `json:"header,omitempty"`
	Body        *Body    `json:"body,omitempty"`
	Auth        *Auth    `json:"auth,omitempty"`
	Description string   `json:"description,omitempty"`
}

// HeaderValue returns the value of the first header named key.
func (r *Request) HeaderValue(key string) (string, bool) {
	for _, h := range r.Header {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

type Header struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type URL struct {
	Raw      string       `json:"raw,omitempty"`
	Protocol string       `json:"protocol,omitempty"`
	Host     string       `json:"host,omitempty"`
	Path     []string     `json:"path,omitempty"`
	Query    []QueryParam `json:"query,omitempty"`
	Variable []Variable   `json:"variable,omitempty"`
}

// String renders the URL the way Postman shows it in the address bar.
// Placeholders are left unescaped.
func (u *URL) String() string {
	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol)
		b.WriteString("://")
	}
	b.WriteString(u.Host)
	for _, seg := range u.Path {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	for i, q := range u.Query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(q.Key))
		b.WriteByte('=')
		b.WriteString(q.Value)
	}
	return b.String()
}

type QueryParam struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type Variable struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

type Event struct {
	Listen string `json:"listen"`
	Script Script `json:"script"`
}

type Script struct {
	Type string   `json:"type"`
	Exec []string `json:"exec"`
}

// TestEvent wraps script lines in a "test" event.
func TestEvent(exec []string) Event {
	if exec == nil {
		exec = []string{}
	}
	return Event{Listen: "test", Script: Script{Type: "text/javascript", Exec: exec}}
}

// Walk visits every item depth-first, folders before their children.
func Walk(items []*Item, fn func(*Item)) {
	for _, it := range items {
		fn(it)
		Walk(it.Item, fn)
	}
}

// Requests returns every request item in document order.
func (c *Collection) Requests() []*Item {
	var out []*Item
	Walk(c.Item, func(it *Item) {
		if !it.IsFolder() {
			out = append(out, it)
		}
	})
	return out
}
