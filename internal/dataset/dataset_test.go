package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatlog/internal/chat"
)

func table(label string, n int) chat.ConversationTable {
	t := chat.ConversationTable{Label: label, Columns: chat.Columns}
	for i := 0; i < n; i++ {
		t.Records = append(t.Records, chat.MessageRecord{
			Conversation: label,
			Date:         "01.01.25",
			Time:         "10:00",
			Sender:       "Ann",
			Body:         strings.Repeat("x", i+1),
		})
	}
	return t
}

func TestMerge_PreservesOrder(t *testing.T) {
	ds, err := Merge("Martin", []chat.ConversationTable{table("a", 3), table("b", 2)})
	require.NoError(t, err)

	require.Len(t, ds.Records, 5)
	assert.Equal(t, chat.Columns, ds.Columns)
	assert.Equal(t, "Martin", ds.Owner)

	var got []string
	for _, r := range ds.Records {
		got = append(got, r.Conversation+":"+r.Body)
	}
	assert.Equal(t, []string{"a:x", "a:xx", "a:xxx", "b:x", "b:xx"}, got)
}

func TestMerge_Empty(t *testing.T) {
	ds, err := Merge("", nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Records)
	assert.Equal(t, chat.Columns, ds.Columns)
}

func TestMerge_SchemaMismatch(t *testing.T) {
	bad := table("bad", 1)
	bad.Columns = []string{"Chat", "Datum", "Uhrzeit", "Absender", "Nachricht"}

	_, err := Merge("", []chat.ConversationTable{table("ok", 1), bad})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "bad", schemaErr.Conversation)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestCounts(t *testing.T) {
	ds := &Dataset{
		Owner: "Martin",
		Records: []chat.MessageRecord{
			{Conversation: "a", Sender: "Martin"},
			{Conversation: "b", Sender: "Bo"},
			{Conversation: "a", Sender: "Ann"},
			{Conversation: "a", Sender: "Martin"},
		},
	}

	assert.Equal(t, []ConversationCount{
		{Conversation: "a", Messages: 3, Owner: 2, Other: 1},
		{Conversation: "b", Messages: 1, Owner: 0, Other: 1},
	}, ds.Counts())
}

func TestWriteCSV_Quoting(t *testing.T) {
	ds, err := Merge("", []chat.ConversationTable{{
		Label:   "q",
		Columns: chat.Columns,
		Records: []chat.MessageRecord{
			{Conversation: "q", Date: "01.01.25", Time: "10:00", Sender: "Ann", Body: `say "hi", then
leave`},
		},
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	assert.Equal(t, "Conversation,Date,Time,Sender,Message\n"+
		"q,01.01.25,10:00,Ann,\"say \"\"hi\"\", then\nleave\"\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds.Records, back.Records)
}

func TestWriteFile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "all_chats.csv")
	ds, err := Merge("", []chat.ConversationTable{table("a", 3), table("b", 2)})
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, ds))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, ds))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestReadFile_RejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.csv")
	require.NoError(t, os.WriteFile(path, []byte("Chat,Datum,Uhrzeit,Absender,Nachricht\n"), 0o644))

	_, err := ReadFile(path)
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}
