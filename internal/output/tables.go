package output

import (
	"strconv"
	"strings"

	"github.com/agentstation/lookersync/pkg/dispatch"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/reconciler"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

// RowsData renders metadata rows. columns fixes the column order; any
// other columns follow in sorted order.
func RowsData(rows []metadata.Row, columns ...string) Data {
	seen := make(map[string]bool, len(columns))
	headers := make([]string, 0, len(columns))
	for _, c := range columns {
		seen[c] = true
		headers = append(headers, c)
	}
	for _, r := range rows {
		for _, c := range r.Columns() {
			if !seen[c] {
				seen[c] = true
				headers = append(headers, c)
			}
		}
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(headers))
		for i, h := range headers {
			line[i] = r.Get(h)
		}
		out = append(out, line)
	}
	return Data{Headers: headers, Rows: out}
}

// SnapshotData renders the attributes and groups of a snapshot as one table.
func SnapshotData(snap *snapshot.Snapshot) Data {
	rows := make([][]string, 0, len(snap.Attributes)+len(snap.Groups))
	for _, name := range snap.AttributeNames() {
		a := snap.Attributes[name]
		rows = append(rows, []string{"attribute", a.ID.String(), name, a.Type, a.DefaultValue})
	}
	for _, name := range snap.GroupNames() {
		rows = append(rows, []string{"group", snap.Groups[name].String(), name, "", ""})
	}
	return Data{
		Headers:         []string{"Kind", "ID", "Name", "Type", "Default"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// ReportData renders one line per change in a run report.
func ReportData(report *dispatch.Report) Data {
	var rows [][]string
	for _, res := range report.Results {
		rows = append(rows, resultRows(res)...)
	}
	return Data{
		Headers: []string{"Environment", "Action", "Target", "Detail"},
		Rows:    rows,
	}
}

func resultRows(res *reconciler.Result) [][]string {
	env := res.Environment
	var rows [][]string
	for _, a := range res.CreatedAttributes {
		rows = append(rows, []string{env, "create attribute", a.Name, a.Type + " default " + quote(a.Default)})
	}
	for _, g := range res.CreatedGroups {
		rows = append(rows, []string{env, "create group", g, ""})
	}
	for _, m := range res.MonthValues {
		rows = append(rows, []string{env, "month boundary", m.Attribute, m.Value})
	}
	for _, u := range res.UpdatedAttributes {
		var detail []string
		for _, f := range u.Fields {
			switch f {
			case "type":
				detail = append(detail, "type "+u.Before.Type+" -> "+u.After.Type)
			case "default_value":
				detail = append(detail, "default "+quote(u.Before.Default)+" -> "+quote(u.After.Default))
			}
		}
		rows = append(rows, []string{env, "update attribute", u.Name, strings.Join(detail, ", ")})
	}
	for _, gv := range res.GroupValues {
		rows = append(rows, []string{env, "set group values", gv.Attribute, strconv.Itoa(len(gv.Values)) + " groups"})
	}
	for _, c := range res.Conflicts {
		rows = append(rows, []string{env, "conflict", c.Attribute, "ignored " + c.Ignored.Type + " default " + quote(c.Ignored.Default)})
	}
	return rows
}

func quote(s string) string {
	return strconv.Quote(s)
}
