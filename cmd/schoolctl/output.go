package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resultView is the JSON shape of a shared.Result.
type resultView[T any] struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	Value   *T     `json:"value,omitempty"`
}

// printResult writes a result. Warnings carry only their message; table
// output hands successful values to table.
func printResult[T any](c *cli, res *shared.Result[T], table func(w io.Writer, v T)) error {
	if c.output == "json" {
		view := resultView[T]{Outcome: res.Outcome.String(), Message: res.Message}
		if !res.IsWarning() {
			view.Value = &res.Value
		}
		return printJSON(c.out, view)
	}
	if res.IsWarning() {
		_, err := fmt.Fprintf(c.out, "warning: %s\n", res.Message)
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	table(tw, res.Value)
	return tw.Flush()
}

// printValue writes a plain value: JSON, or table rows.
func printValue[T any](c *cli, v T, table func(w io.Writer, v T)) error {
	if c.output == "json" {
		return printJSON(c.out, v)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	table(tw, v)
	return tw.Flush()
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

// parseID parses a required uuid flag value.
func parseID(flag, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, shared.WrapError("cli", "ParseFlag", shared.ErrInvalidID,
			fmt.Sprintf("--%s must be a uuid", flag), err)
	}
	return id, nil
}

// parseOptionalID parses a uuid flag that may be empty.
func parseOptionalID(flag, value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, nil
	}
	return parseID(flag, value)
}

func parseIDs(flag string, values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(flag, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
