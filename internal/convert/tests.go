package convert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

const schemaTestName = "Response Body respects JSON schema documentation"

// GenerateTests writes a tv4-based test script for the declared responses:
// one status-code assertion, then a schema check for every 2xx response
// carrying a schema. Response references are resolved first.
func GenerateTests(r *Resolver, responses *sequencedmap.Map[string, *spec.Response]) []string {
	type declared struct {
		code     int
		response *spec.Response
	}
	var codes []declared
	for key, resp := range spec.Entries(responses) {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		if resp != nil && resp.Ref != "" {
			if resolved, ok := r.ResolveResponse(resp.Ref); ok {
				resp = resolved
			} else {
				resp = nil
			}
		}
		codes = append(codes, declared{code: code, response: resp})
	}
	sort.SliceStable(codes, func(i, j int) bool { return codes[i].code < codes[j].code })

	list := make([]string, len(codes))
	for i, c := range codes {
		list[i] = strconv.Itoa(c.code)
	}
	lines := []string{
		fmt.Sprintf(`tests["Status code is expected"] = [%s].indexOf(responseCode.code) > -1;`, strings.Join(list, ",")),
	}

	for _, c := range codes {
		if c.code < 200 || c.code > 299 || c.response == nil || c.response.Schema == nil {
			continue
		}
		schema, err := prettyJSON(r.ResolvedValue(c.response.Schema))
		if err != nil {
			continue
		}
		lines = append(lines,
			"",
			fmt.Sprintf("if (responseCode.code === %d) {", c.code),
			"\tvar data = JSON.parse(responseBody);",
			"\tvar schema = "+schema+";",
			fmt.Sprintf("\ttests[%q] = tv4.validate(data, schema);", schemaTestName),
			fmt.Sprintf("\tif(tests[%q] === false){", schemaTestName),
			"\t\tconsole.log(tv4.error);",
			"\t}",
			"}",
		)
	}
	return lines
}
