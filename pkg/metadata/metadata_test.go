package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/lookersync/pkg/errors"
)

const sampleTable = "Dealerware Group Name\tUser Attribute Name\tUser Attribute Type\tUser Attribute Default\tUser Attribute Value\tDealerware OEM Metadata URL Dev\tDealerware OEM Metadata URL Prod\n" +
	"Acme\ttier\tstring\tbasic\tgold\thttps://dev\t\n" +
	"Beta\tregion\tstring\tus\tEU, \"west\"\thttps://dev\thttps://prod\n"

func TestParse(t *testing.T) {
	rows, err := Parse(sampleTable)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Acme", rows[0].Get("dealerware_group_name"))
	assert.Equal(t, "tier", rows[0].Get("user_attribute_name"))
	assert.Equal(t, "https://dev", rows[0].Get("dealerware_oem_metadata_url_dev"))
	assert.Equal(t, "", rows[0].Get("dealerware_oem_metadata_url_prod"))

	// commas and quotes pass through untouched
	assert.Equal(t, "EU, \"west\"", rows[1].Get("user_attribute_value"))
	assert.Len(t, rows[1].Columns(), 7)
}

func TestParseEmptyLastColumnOnFinalRow(t *testing.T) {
	text := "Grp Name\tUser Attribute Name\tURL Prod\tURL Dev\n" +
		"Beta\tregion\thttp://x\thttp://y\n" +
		"Acme\ttier\thttp://x\t\n"

	for name, input := range map[string]string{
		"trailing newline": text,
		"no newline":       text[:len(text)-1],
		"crlf":             "Name\tURL Dev\r\nAcme\t\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := Parse(input)
			require.NoError(t, err)
			last := rows[len(rows)-1]
			assert.Equal(t, "", last.Get("url_dev"))
			assert.Len(t, last.Columns(), len(rows[0].Columns()))
		})
	}
}

func TestParseCRLF(t *testing.T) {
	rows, err := Parse("Name\tValue\r\na\tb\r\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{"name": "a", "value": "b"}, rows[0])
}

func TestParseHeaderOnly(t *testing.T) {
	rows, err := Parse("Name\tValue\n")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "  \n \n"},
		{name: "short row", text: "a\tb\tc\n1\t2\n", line: 2},
		{name: "long row", text: "a\tb\n1\t2\n1\t2\t3\n", line: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)

			var pe *pkgerrors.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "txt", pe.Format)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestNormalizeColumn(t *testing.T) {
	assert.Equal(t, "user_attribute_name", NormalizeColumn("User Attribute Name"))
	assert.Equal(t, "already_normal", NormalizeColumn("already_normal"))
}

type fakeRunner struct {
	text   string
	err    error
	id     int64
	format string
}

func (f *fakeRunner) RunLook(_ context.Context, id int64, format string) (string, error) {
	f.id, f.format = id, format
	return f.text, f.err
}

func TestReader(t *testing.T) {
	runner := &fakeRunner{text: sampleTable}
	r := NewReader(runner, 0)

	rows, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(6), runner.id)
	assert.Equal(t, "txt", runner.format)
	assert.Equal(t, int64(6), r.LookID())
}

func TestReaderErrors(t *testing.T) {
	t.Run("runner failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewReader(&fakeRunner{err: boom}, 12).Read(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("malformed table", func(t *testing.T) {
		_, err := NewReader(&fakeRunner{text: "a\tb\n1\n"}, 12).Read(context.Background())
		var pe *pkgerrors.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "look 12", pe.Source)
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := NewReader(&fakeRunner{text: "\n"}, 12).Read(context.Background())
		var pe *pkgerrors.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "look 12", pe.Source)
		assert.Contains(t, err.Error(), "empty table")
	})
}
