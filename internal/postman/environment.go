package postman

// Environment is a Postman environment file.
type Environment struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Values    []EnvValue `json:"values"`
	Timestamp int64      `json:"timestamp"`
	Scope     string     `json:"_postman_variable_scope"`
}

type EnvValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// Keys lists the variable names in order.
func (e *Environment) Keys() []string {
	out := make([]string, 0, len(e.Values))
	for _, v := range e.Values {
		out = append(out, v.Key)
	}
	return out
}
