package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"udtkit/engine"
	"udtkit/field"
)

// wireView renders a record the way it is stored: one entry per column.
func wireView[T any, PT engine.Model[T]](e *engine.Engine[T, PT], m *T) map[string]string {
	rec := PT(m)
	out := map[string]string{"code": rec.GetCode()}
	if name := rec.GetName(); name != "" {
		out["name"] = name
	}
	for _, b := range e.Schema().Fields() {
		d := b.Field
		cols := d.Columns()
		v := b.Get(m)
		if d.Kind == field.DateTimePair {
			out[cols[0]] = d.DateToWire(v)
			out[cols[1]] = d.TimeToWire(v)
			continue
		}
		out[cols[0]] = d.ToWire(v)
	}
	return out
}

func printRecord[T any, PT engine.Model[T]](w io.Writer, e *engine.Engine[T, PT], m *T) error {
	data, err := json.MarshalIndent(wireView(e, m), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printList[T any, PT engine.Model[T]](w io.Writer, e *engine.Engine[T, PT], records []*T) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range records {
		rec := PT(m)
		state := "active"
		if a, ok := any(rec).(interface{ IsActive() bool }); ok && !a.IsActive() {
			state = "deleted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.GetCode(), state, rec.GetName())
	}
	return tw.Flush()
}
