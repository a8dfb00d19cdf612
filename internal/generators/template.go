package generators

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"trainingops/internal/models"
)

var slotPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// TemplateParams configures the template generator
type TemplateParams struct {
	Tool      string              `json:"tool"`
	Intent    string              `json:"intent"`
	Templates []QueryTemplate     `json:"templates"`
	Values    map[string][]string `json:"values"`
	Limit     int                 `json:"limit"`
}

// QueryTemplate is a query/response pair with {slot} placeholders
type QueryTemplate struct {
	Tool     string `json:"tool,omitempty"`
	Intent   string `json:"intent,omitempty"`
	Query    string `json:"query"`
	Response string `json:"response"`
}

// Template fills every template with each combination of its slot values
type Template struct{}

// Name implements Generator
func (t *Template) Name() string { return "template" }

// Generate implements Generator
func (t *Template) Generate(ctx context.Context, params Params) ([]models.TrainingExample, error) {
	var p TemplateParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	if len(p.Templates) == 0 {
		return nil, fmt.Errorf("template generator: no templates given")
	}

	var out []models.TrainingExample
	for _, tpl := range p.Templates {
		slots := templateSlots(tpl.Query + " " + tpl.Response)
		for _, slot := range slots {
			if len(p.Values[slot]) == 0 {
				return nil, fmt.Errorf("template generator: no values for slot {%s}", slot)
			}
		}

		tool, intent := tpl.Tool, tpl.Intent
		if tool == "" {
			tool = p.Tool
		}
		if intent == "" {
			intent = p.Intent
		}

		for _, binding := range combinations(slots, p.Values) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, models.TrainingExample{
				Tool:     tool,
				Intent:   intent,
				Query:    fill(tpl.Query, binding),
				Response: fill(tpl.Response, binding),
				Metadata: map[string]interface{}{"template": tpl.Query},
			})
			if p.Limit > 0 && len(out) >= p.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// templateSlots returns the distinct slot names in s, sorted
func templateSlots(s string) []string {
	seen := map[string]bool{}
	var slots []string
	for _, m := range slotPattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			slots = append(slots, m[1])
		}
	}
	sort.Strings(slots)
	return slots
}

// combinations returns the cartesian product of the slot values, varying the
// last slot fastest
func combinations(slots []string, values map[string][]string) []map[string]string {
	out := []map[string]string{{}}
	for _, slot := range slots {
		var next []map[string]string
		for _, partial := range out {
			for _, v := range values[slot] {
				b := make(map[string]string, len(partial)+1)
				for k, pv := range partial {
					b[k] = pv
				}
				b[slot] = v
				next = append(next, b)
			}
		}
		out = next
	}
	return out
}

func fill(s string, binding map[string]string) string {
	return slotPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.Trim(m, "{}")
		if v, ok := binding[name]; ok {
			return v
		}
		return m
	})
}
