package convert

import (
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// MergeParameters combines path-level and operation-level parameters.
// Parameters are keyed by name alone: an operation parameter replaces an
// inherited one of the same name in place, whatever its location.
// References are resolved first and unresolvable ones are dropped.
func MergeParameters(r *Resolver, inherited, own []*spec.Parameter) *sequencedmap.Map[string, *spec.Parameter] {
	merged := sequencedmap.New[string, *spec.Parameter]()
	for _, list := range [][]*spec.Parameter{inherited, own} {
		for _, p := range list {
			if p == nil {
				continue
			}
			if p.Ref != "" {
				resolved, ok := r.ResolveParameter(p.Ref)
				if !ok {
					continue
				}
				p = resolved
			}
			merged.Set(p.Name, p)
		}
	}
	return merged
}
