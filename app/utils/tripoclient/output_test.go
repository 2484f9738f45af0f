package tripoclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetRefUnmarshal(t *testing.T) {
	var task Task
	raw := `{
		"task_id": "t-1",
		"status": "success",
		"progress": 100,
		"output": {
			"model": "https://assets.example.com/plain.glb",
			"pbr_model": {"url": "https://assets.example.com/object.glb", "type": "glb"},
			"base_model": {"something": "else"}
		}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &task))

	assert.Equal(t, "https://assets.example.com/plain.glb", task.Output["model"].URL)
	assert.Equal(t, "https://assets.example.com/object.glb", task.Output["pbr_model"].URL)
	// 认不出的形状留空，不报错
	assert.Empty(t, task.Output["base_model"].URL)
}

func TestExtractModelURLPrecedence(t *testing.T) {
	task := &Task{
		TaskID: "t-1",
		Status: StatusSuccess,
		Output: map[string]AssetRef{
			"base_model": {URL: "https://assets.example.com/base.glb"},
			"model":      {URL: "https://assets.example.com/model.glb"},
		},
	}

	url, err := ExtractModelURL(task)
	require.NoError(t, err)
	assert.Equal(t, "https://assets.example.com/model.glb", url)
}

func TestExtractModelURLFallsThroughInvalid(t *testing.T) {
	task := &Task{
		TaskID: "t-1",
		Output: map[string]AssetRef{
			"model":     {URL: "not-a-url"},
			"pbr_model": {URL: "https://assets.example.com/pbr.glb"},
		},
	}

	url, err := ExtractModelURL(task)
	require.NoError(t, err)
	assert.Equal(t, "https://assets.example.com/pbr.glb", url)
}

func TestExtractModelURLMissing(t *testing.T) {
	var noURLErr *NoModelURLError

	_, err := ExtractModelURL(&Task{TaskID: "t-1", Output: map[string]AssetRef{}})
	require.ErrorAs(t, err, &noURLErr)
	assert.Equal(t, "t-1", noURLErr.TaskID)

	_, err = ExtractModelURL(nil)
	assert.ErrorAs(t, err, &noURLErr)
}
