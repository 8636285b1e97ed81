package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/itchyny/gojq"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func (a *app) isJSON() bool {
	return a.output == outputJSON
}

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

// printJSON writes v as indented JSON, or the results of --jq when set.
func (a *app) printJSON(w io.Writer, v interface{}) error {
	return a.writeJSON(w, v, "  ")
}

// printJSONLine writes v as one compact JSON line, for streaming output.
func (a *app) printJSONLine(w io.Writer, v interface{}) error {
	return a.writeJSON(w, v, "")
}

func (a *app) writeJSON(w io.Writer, v interface{}, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	if a.jq == "" {
		return enc.Encode(v)
	}

	results, err := applyJQ(v, a.jq)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// applyJQ runs expr over the JSON form of v and returns every emitted value.
func applyJQ(v interface{}, expr string) ([]interface{}, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid --jq expression: %w", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := query.Run(doc)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, out)
	}
	return results, nil
}
