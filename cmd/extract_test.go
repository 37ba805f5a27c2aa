package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svitlo/internal/outage"
	"svitlo/pkg/testutil"
)

func snapshotReader(t *testing.T, doc any) *bytes.Reader {
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestRunExtract(t *testing.T) {
	doc := testutil.Snapshot("2025-06-15", testutil.Slots([2]int{16, 20}, [2]int{46, 48}),
		"2025-06-16", testutil.Slots([2]int{0, 2}))

	var out bytes.Buffer
	err := runExtract(snapshotReader(t, doc), &out, &extractOptions{timezone: "Europe/Kyiv"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2025-06-15 08:00 EEST\t2025-06-15 10:00 EEST\t2h0m0s", lines[0])
	assert.Equal(t, "2025-06-15 23:00 EEST\t2025-06-16 00:00 EEST\t1h0m0s", lines[1])
	assert.Equal(t, "2025-06-16 00:00 EEST\t2025-06-16 01:00 EEST\t1h0m0s", lines[2])
}

func TestRunExtract_MergeAcrossMidnight(t *testing.T) {
	doc := testutil.Snapshot("2025-06-15", testutil.Slots([2]int{46, 48}),
		"2025-06-16", testutil.Slots([2]int{0, 2}))

	var out bytes.Buffer
	err := runExtract(snapshotReader(t, doc), &out, &extractOptions{timezone: "Europe/Kyiv", merge: true})
	require.NoError(t, err)

	assert.Equal(t, "2025-06-15 23:00 EEST\t2025-06-16 01:00 EEST\t2h0m0s\n", out.String())
}

func TestRunExtract_ParseErrorKeepsOtherDay(t *testing.T) {
	doc := testutil.Snapshot("15.06.2025", testutil.Slots([2]int{0, 48}),
		"2025-06-16", testutil.Slots([2]int{20, 22}))

	var out bytes.Buffer
	err := runExtract(snapshotReader(t, doc), &out, &extractOptions{timezone: "Europe/Kyiv"})

	var perr *outage.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "2025-06-16 10:00 EEST\t2025-06-16 11:00 EEST\t1h0m0s\n", out.String())
}

func TestRunExtract_Errors(t *testing.T) {
	var out bytes.Buffer

	err := runExtract(strings.NewReader("{}"), &out, &extractOptions{timezone: "Mars/Olympus"})
	assert.ErrorContains(t, err, "invalid timezone")

	err = runExtract(strings.NewReader("not json"), &out, &extractOptions{timezone: "UTC"})
	assert.Error(t, err)

	err = runExtract(strings.NewReader("{}"), &out, &extractOptions{timezone: "UTC"})
	assert.NoError(t, err, "an empty snapshot has no outages")
	assert.Empty(t, out.String())
}

func TestExtractCmd_FileArgument(t *testing.T) {
	path := testutil.WriteSnapshot(t, t.TempDir(),
		testutil.Snapshot("2025-01-10", testutil.Slots([2]int{0, 48}), "", nil))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"extract", "--timezone", "UTC", path})

	require.NoError(t, root.Execute())
	assert.Equal(t, "2025-01-10 00:00 UTC\t2025-01-11 00:00 UTC\t24h0m0s\n", out.String())
}
