package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lookersync/internal/looker"
	"github.com/agentstation/lookersync/pkg/dispatch"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/reconciler"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, map[string]int{"a": 1}))

	var out map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 1, out["a"])
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	snap := snapshot.New()
	snap.Groups["Acme"] = 7
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, snap))
	assert.Contains(t, buf.String(), "Acme: 7")
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := Data{
		Headers: []string{"Name", "Value"},
		Rows:    [][]string{{"tier", "gold"}},
	}
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, data))
	assert.Contains(t, buf.String(), "tier")
	assert.Contains(t, buf.String(), "gold")

	// non-table data falls back to JSON
	buf.Reset()
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, []int{1, 2}))
	assert.JSONEq(t, "[1,2]", buf.String())
}

func TestRowsData(t *testing.T) {
	rows := []metadata.Row{
		{"b": "1", "a": "2", "c": "3"},
		{"b": "4", "a": "5", "c": "6"},
	}
	data := RowsData(rows, "c")
	assert.Equal(t, []string{"c", "a", "b"}, data.Headers)
	assert.Equal(t, [][]string{{"3", "2", "1"}, {"6", "5", "4"}}, data.Rows)
}

func TestSnapshotData(t *testing.T) {
	snap := snapshot.New()
	snap.Groups["All Users"] = 1
	snap.Attributes["tier"] = snapshot.Attribute{ID: 10, Type: "string", DefaultValue: "basic"}

	data := SnapshotData(snap)
	assert.Equal(t, [][]string{
		{"attribute", "10", "tier", "string", "basic"},
		{"group", "1", "All Users", "", ""},
	}, data.Rows)
}

func TestReportData(t *testing.T) {
	report := &dispatch.Report{Results: []*reconciler.Result{{
		Environment:       "dev",
		CreatedAttributes: []reconciler.AttributeSpec{{Name: "tier", Type: "string", Default: "basic"}},
		CreatedGroups:     []string{"Acme"},
		UpdatedAttributes: []reconciler.AttributeUpdate{{
			Name:   "region",
			Before: reconciler.AttributeSpec{Type: "string", Default: "us"},
			After:  reconciler.AttributeSpec{Type: "string", Default: "eu"},
			Fields: []string{"default_value"},
		}},
		GroupValues: []reconciler.GroupValueSet{{Attribute: "tier", Values: []looker.GroupValue{{GroupID: 1, Value: "gold"}}}},
	}}}

	data := ReportData(report)
	require.Len(t, data.Rows, 4)
	assert.Equal(t, []string{"dev", "create attribute", "tier", `string default "basic"`}, data.Rows[0])
	assert.Equal(t, []string{"dev", "create group", "Acme", ""}, data.Rows[1])
	assert.Equal(t, []string{"dev", "update attribute", "region", `default "us" -> "eu"`}, data.Rows[2])
	assert.Equal(t, []string{"dev", "set group values", "tier", "1 groups"}, data.Rows[3])
}
