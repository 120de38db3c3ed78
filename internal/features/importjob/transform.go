package importjob

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// applyTransform runs a mapping's transform expression against a cell value.
// The expression sees the raw cell as `value` and the whole row as `row`,
// e.g. `text.trim_space(value)` or `row["debit"] + " " + row["credit"]`.
func applyTransform(expr string, value string, row map[string]string) (string, error) {
	src := fmt.Sprintf("text := import(\"text\")\nmath := import(\"math\")\nout := (%s)", expr)
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("text", "math"))

	if err := script.Add("value", value); err != nil {
		return "", err
	}
	rowObj := make(map[string]interface{}, len(row))
	for k, v := range row {
		rowObj[k] = v
	}
	if err := script.Add("row", rowObj); err != nil {
		return "", err
	}

	compiled, err := script.Compile()
	if err != nil {
		return "", fmt.Errorf("failed to compile transform: %w", err)
	}
	if err := compiled.Run(); err != nil {
		return "", fmt.Errorf("failed to run transform: %w", err)
	}

	out := compiled.Get("out")
	return out.String(), nil
}
