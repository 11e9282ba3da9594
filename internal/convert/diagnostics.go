package convert

import "fmt"

type DiagnosticCode string

const (
	DiagDanglingRef           DiagnosticCode = "dangling-ref"
	DiagCyclicRef             DiagnosticCode = "cyclic-ref"
	DiagTemplateDepth         DiagnosticCode = "template-depth"
	DiagInvalidMeta           DiagnosticCode = "invalid-meta"
	DiagValidationUnavailable DiagnosticCode = "validation-unavailable"
	DiagCollectionInvalid     DiagnosticCode = "collection-invalid"
)

// Diagnostic is a non-fatal finding produced during a run.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	Location string         `json:"location,omitempty"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Location == "" {
		return fmt.Sprintf("[%s] %s", d.Code, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Location, d.Message)
}

// diagnostics collects findings once each, in the order first reported.
type diagnostics struct {
	list []Diagnostic
	seen map[Diagnostic]struct{}
}

func (d *diagnostics) add(code DiagnosticCode, location, format string, args ...any) {
	if d == nil {
		return
	}
	diag := Diagnostic{Code: code, Location: location, Message: fmt.Sprintf(format, args...)}
	if d.seen == nil {
		d.seen = map[Diagnostic]struct{}{}
	}
	if _, dup := d.seen[diag]; dup {
		return
	}
	d.seen[diag] = struct{}{}
	d.list = append(d.list, diag)
}

func (d *diagnostics) all() []Diagnostic {
	if d == nil {
		return nil
	}
	return d.list
}
