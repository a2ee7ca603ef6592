package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperPatchColumns(t *testing.T) {
	status := StatusFuture
	summary := "solid"
	file := &ReviewArtifact{Name: "r.pdf", URL: "https://blob/r.pdf", ContentType: "application/pdf", Key: "reviews/p/1_r.pdf"}

	tests := []struct {
		name  string
		patch PaperPatch
		want  map[string]interface{}
	}{
		{"status only", PaperPatch{Status: &status}, map[string]interface{}{"status": "future"}},
		{"summary only", PaperPatch{Summary: &summary}, map[string]interface{}{"summary": "solid"}},
		{"empty", PaperPatch{}, map[string]interface{}{}},
		{"completion", PaperPatch{Status: &status, Summary: &summary, ReviewFile: file}, map[string]interface{}{
			"status":           "future",
			"summary":          "solid",
			"review_file_name": "r.pdf",
			"review_file_url":  "https://blob/r.pdf",
			"review_file_type": "application/pdf",
			"review_file_key":  "reviews/p/1_r.pdf",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patch.Columns())
			assert.Equal(t, len(tt.want) == 0, tt.patch.Empty())
		})
	}
}

func TestPaperPatchApplyKeepsUntouchedFields(t *testing.T) {
	summary := "kept"
	p := Paper{ID: "p", Name: "n", Status: StatusCurrent, Summary: &summary}
	missed := StatusMissed

	got := PaperPatch{Status: &missed}.Apply(p)
	assert.Equal(t, StatusMissed, got.Status)
	assert.Equal(t, "kept", *got.Summary)
	assert.Equal(t, "n", got.Name)
	// Original unverändert
	assert.Equal(t, StatusCurrent, p.Status)
}

func TestReviewFileHooks(t *testing.T) {
	p := Paper{ReviewFile: &ReviewArtifact{Name: "a.txt", URL: "u", ContentType: "text/plain", Key: "k"}}
	require.NoError(t, p.BeforeSave(nil))
	require.NotNil(t, p.ReviewFileKey)
	assert.Equal(t, "k", *p.ReviewFileKey)

	loaded := Paper{ReviewFileName: p.ReviewFileName, ReviewFileURL: p.ReviewFileURL, ReviewFileType: p.ReviewFileType, ReviewFileKey: p.ReviewFileKey}
	require.NoError(t, loaded.AfterFind(nil))
	assert.Equal(t, p.ReviewFile, loaded.ReviewFile)

	// unvollständige Spalten gelten als kein Artefakt
	loaded.ReviewFileKey = nil
	require.NoError(t, loaded.AfterFind(nil))
	assert.Nil(t, loaded.ReviewFile)

	p.ReviewFile = nil
	require.NoError(t, p.BeforeSave(nil))
	assert.Nil(t, p.ReviewFileName)
}

func TestDateScanAndValue(t *testing.T) {
	d := MustDate("2024-03-05")
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v)

	inputs := []interface{}{
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"2024-03-05",
		[]byte("2024-03-05T00:00:00Z"),
	}
	for _, in := range inputs {
		var got Date
		require.NoError(t, got.Scan(in))
		assert.True(t, d.Equal(got.Time), "%v", in)
	}

	var zero Date
	require.NoError(t, zero.Scan(nil))
	assert.True(t, zero.IsZero())
	assert.Error(t, zero.Scan(42))
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
		Z Date `json:"z"`
	}{D: MustDate("2024-01-10")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-01-10","z":null}`, string(b))

	var back struct {
		D Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-01-10"}`), &back))
	assert.Equal(t, "2024-01-10", back.D.String())
	assert.Error(t, json.Unmarshal([]byte(`{"d":"10.01.2024"}`), &back))
}
