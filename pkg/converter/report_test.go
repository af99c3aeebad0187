package converter_test

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func outcomeSet() []converter.Outcome {
	return []converter.Outcome{
		{Item: converter.WorkItem{SourcePath: "/in/a"}, Status: converter.StatusSuccess},
		{Item: converter.WorkItem{SourcePath: "/in/b"}, Status: converter.StatusSuccess},
		{Item: converter.WorkItem{SourcePath: "/in/c"}, Status: converter.StatusSkipped, Message: converter.MessageEmptyFile},
		{Item: converter.WorkItem{SourcePath: "/in/d"}, Status: converter.StatusFailed, Message: converter.MessageUnrecognized},
		{Item: converter.WorkItem{SourcePath: "/in/e"}, Status: converter.StatusFailed, Err: converter.ErrWriteFailed},
	}
}

func TestAggregate_Counts(t *testing.T) {
	batch := converter.Aggregate(outcomeSet())

	assert.Equal(t, 5, batch.Total)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, batch.Total, batch.Succeeded+batch.Skipped+batch.Failed)
	assert.Equal(t, converter.StatusFailed, batch.Verdict)
}

func TestAggregate_Empty(t *testing.T) {
	batch := converter.Aggregate(nil)

	assert.Zero(t, batch.Total)
	assert.Equal(t, converter.StatusSuccess, batch.Verdict)
	assert.NoError(t, batch.Err())
}

func TestAggregate_SkipsDoNotFail(t *testing.T) {
	batch := converter.Aggregate([]converter.Outcome{
		{Status: converter.StatusSkipped},
		{Status: converter.StatusSkipped},
	})
	assert.Equal(t, converter.StatusSuccess, batch.Verdict)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	outcomes := outcomeSet()
	want := converter.Aggregate(outcomes)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]converter.Outcome(nil), outcomes...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := converter.Aggregate(shuffled)
		assert.Equal(t, want.Total, got.Total)
		assert.Equal(t, want.Succeeded, got.Succeeded)
		assert.Equal(t, want.Skipped, got.Skipped)
		assert.Equal(t, want.Failed, got.Failed)
		assert.Equal(t, want.Verdict, got.Verdict)
	}
}

func TestBatchResult_Err(t *testing.T) {
	err := converter.Aggregate(outcomeSet()).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrWriteFailed)
	assert.Contains(t, err.Error(), "/in/d: "+converter.MessageUnrecognized)
	assert.Contains(t, err.Error(), "/in/e")
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func sampleReport() converter.Report {
	return converter.Report{
		Summary: converter.ReportSummary{
			InputPath:      "/in",
			OutputPath:     "/out",
			TargetEncoding: "UTF-8",
			TotalFiles:     2,
			SucceededCount: 1,
			FailedCount:    1,
			Verdict:        converter.StatusFailed,
			SchemaVersion:  converter.ReportSchemaVersion,
		},
		Files: []converter.FileResult{
			{Path: "/in/a.txt", OutputPath: "/out/a.txt", Status: converter.StatusSuccess, Encoding: "ISO-8859-1", Message: converter.MessageConverted},
			{Path: "/in/b.txt", OutputPath: "/out/b.txt", Status: converter.StatusFailed, Error: "boom", ErrorKind: converter.ErrorKindConversion},
		},
	}
}

func TestReport_EncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, converter.OutputFormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "failed", summary["verdict"])
	assert.EqualValues(t, 2, summary["totalFiles"])
	files := decoded["files"].([]any)
	require.Len(t, files, 2)
	assert.Equal(t, "conversion", files[1].(map[string]any)["errorKind"])
	assert.NotContains(t, files[0].(map[string]any), "error", "empty fields are omitted")
}

func TestReport_EncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, converter.OutputFormatYAML))

	var decoded struct {
		Summary struct {
			Verdict        string `yaml:"verdict"`
			TargetEncoding string `yaml:"targetEncoding"`
		} `yaml:"summary"`
		Files []map[string]any `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "failed", decoded.Summary.Verdict)
	assert.Equal(t, "UTF-8", decoded.Summary.TargetEncoding)
	assert.Len(t, decoded.Files, 2)
}

func TestReport_EncodeTOML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, converter.OutputFormatTOML))

	var decoded struct {
		Summary struct {
			InputPath string `toml:"inputPath"`
			Verdict   string `toml:"verdict"`
		} `toml:"summary"`
		Files []struct {
			Path     string `toml:"path"`
			Encoding string `toml:"encoding"`
		} `toml:"files"`
	}
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	assert.Equal(t, "/in", decoded.Summary.InputPath)
	assert.Equal(t, "failed", decoded.Summary.Verdict)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, "ISO-8859-1", decoded.Files[0].Encoding)
}

func TestReport_EncodeRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := sampleReport().Encode(&buf, converter.OutputFormatText)
	assert.ErrorIs(t, err, converter.ErrConfigValidation)
	assert.Zero(t, buf.Len())
}
