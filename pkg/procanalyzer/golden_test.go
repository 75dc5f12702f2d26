// SPDX-License-Identifier: Apache-2.0

package procanalyzer_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/nuetzliches/xtraq/pkg/procanalyzer"
)

// resultSetExpectation is one expected result-set shape within a golden
// fixture's expectation.json.
type resultSetExpectation struct {
	Name        string   `json:"name"`
	ColumnNames []string `json:"columnNames"`
}

// fixtureExpectation is the second file of every testdata/golden/*.txtar
// archive: what Analyze should derive from the first file's SQL body.
type fixtureExpectation struct {
	Schema         string                 `json:"schema"`
	Name           string                 `json:"name"`
	ParameterNames []string               `json:"parameterNames"`
	ResultSets     []resultSetExpectation `json:"resultSets"`
}

// TestAnalyzeGoldenFixtures replays every testdata/golden/*.txtar archive: the
// first file is a procedure's raw T-SQL body, the second is the expected
// shape Analyze should derive from it.
func TestAnalyzeGoldenFixtures(t *testing.T) {
	t.Parallel()

	entries, err := os.ReadDir("testdata/golden")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		entry := entry
		if entry.IsDir() {
			continue
		}

		t.Run(entry.Name(), func(t *testing.T) {
			t.Parallel()

			archive, err := txtar.ParseFile(filepath.Join("testdata", "golden", entry.Name()))
			require.NoError(t, err)
			require.Len(t, archive.Files, 2)
			assert.Equal(t, "input.sql", archive.Files[0].Name)
			assert.Equal(t, "expectation.json", archive.Files[1].Name)

			var want fixtureExpectation
			require.NoError(t, json.Unmarshal(archive.Files[1].Data, &want))

			model := procanalyzer.Analyze(want.Schema, string(archive.Files[0].Data))

			assert.Equal(t, want.Schema, model.Descriptor.Schema)
			assert.Equal(t, want.Name, model.Descriptor.Name)

			gotParameterNames := make([]string, 0, len(model.Parameters))
			for _, p := range model.Parameters {
				gotParameterNames = append(gotParameterNames, p.Name)
			}
			assert.Equal(t, want.ParameterNames, gotParameterNames)

			require.Len(t, model.ResultSets, len(want.ResultSets))
			for i, wantRS := range want.ResultSets {
				gotRS := model.ResultSets[i]
				assert.Equal(t, wantRS.Name, gotRS.Name)

				gotColumnNames := make([]string, 0, len(gotRS.Columns))
				for _, c := range gotRS.Columns {
					gotColumnNames = append(gotColumnNames, c.Name)
				}
				assert.Equal(t, wantRS.ColumnNames, gotColumnNames)
			}
		})
	}
}
