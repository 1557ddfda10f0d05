package workflow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"3": {
		"inputs": {"seed": 42, "steps": 20, "cfg": 7.5, "model": ["4", 0], "positive": ["6", 0]},
		"class_type": "KSampler",
		"_meta": {"title": "Sampler"}
	},
	"4": {
		"inputs": {"ckpt_name": "v1-5.safetensors"},
		"class_type": "CheckpointLoaderSimple",
		"_meta": {"title": "Load Checkpoint"}
	},
	"6": {
		"inputs": {"text": "a photo of a cat", "clip": ["4", 1]},
		"class_type": "CLIPTextEncode",
		"_meta": {"title": "Prompt"}
	},
	"9": {
		"inputs": {"images": ["3", 0], "filename_prefix": "out", "overwrite": true},
		"class_type": "SaveImage",
		"_meta": {"title": "Save"}
	}
}`

func mustParse(t *testing.T) *Workflow {
	t.Helper()
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	return w
}

func TestNodes(t *testing.T) {
	w := mustParse(t)

	infos := w.Nodes()
	require.Len(t, infos, 4)

	// Listing order is sorted by id, so it is stable across calls.
	assert.Equal(t, []NodeInfo{
		{ID: "3", Title: "Sampler"},
		{ID: "4", Title: "Load Checkpoint"},
		{ID: "6", Title: "Prompt"},
		{ID: "9", Title: "Save"},
	}, infos)
}

func TestParam(t *testing.T) {
	w := mustParse(t)

	t.Run("returns a literal value", func(t *testing.T) {
		v, err := w.Param("6", "text")
		require.NoError(t, err)
		assert.Equal(t, "a photo of a cat", v)
	})

	t.Run("returns a reference value", func(t *testing.T) {
		v, err := w.Param("3", "model")
		require.NoError(t, err)
		ref, ok := AsReference(v)
		require.True(t, ok)
		assert.Equal(t, Reference{NodeID: "4", Slot: 0}, ref)
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := w.Param("999", "text")
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("unknown parameter", func(t *testing.T) {
		_, err := w.Param("6", "nope")
		assert.ErrorIs(t, err, ErrParamNotFound)
	})
}

func TestSetParam(t *testing.T) {
	t.Run("numeric existing value coerces text", func(t *testing.T) {
		w := mustParse(t)
		require.NoError(t, w.SetParam("3", "seed", "1234"))

		v, err := w.Param("3", "seed")
		require.NoError(t, err)
		assert.Equal(t, json.Number("1234"), v)
	})

	t.Run("numeric existing value accepts numbers", func(t *testing.T) {
		w := mustParse(t)
		require.NoError(t, w.SetParam("3", "cfg", 8.0))

		v, err := w.Param("3", "cfg")
		require.NoError(t, err)
		assert.Equal(t, json.Number("8"), v)
	})

	t.Run("numeric existing value rejects non-numeric text", func(t *testing.T) {
		w := mustParse(t)
		err := w.SetParam("3", "steps", "lots")
		assert.ErrorIs(t, err, ErrCannotCoerce)
	})

	t.Run("bool existing value coerces text", func(t *testing.T) {
		w := mustParse(t)
		require.NoError(t, w.SetParam("9", "overwrite", "false"))

		v, err := w.Param("9", "overwrite")
		require.NoError(t, err)
		assert.Equal(t, false, v)
	})

	t.Run("list existing value parses JSON text", func(t *testing.T) {
		w := mustParse(t)
		require.NoError(t, w.SetParam("3", "model", `["4", 1]`))

		v, err := w.Param("3", "model")
		require.NoError(t, err)
		ref, ok := AsReference(v)
		require.True(t, ok)
		assert.Equal(t, Reference{NodeID: "4", Slot: 1}, ref)
	})

	t.Run("list existing value rejects malformed text", func(t *testing.T) {
		w := mustParse(t)
		err := w.SetParam("3", "model", "not json")
		assert.ErrorIs(t, err, ErrCannotCoerce)
	})

	t.Run("text existing value stores verbatim", func(t *testing.T) {
		w := mustParse(t)
		require.NoError(t, w.SetParam("6", "text", "a photo of a dog"))

		v, err := w.Param("6", "text")
		require.NoError(t, err)
		assert.Equal(t, "a photo of a dog", v)
	})

	t.Run("unknown node", func(t *testing.T) {
		w := mustParse(t)
		assert.ErrorIs(t, w.SetParam("999", "seed", 1), ErrNodeNotFound)
	})

	t.Run("unknown parameter", func(t *testing.T) {
		w := mustParse(t)
		assert.ErrorIs(t, w.SetParam("3", "nope", 1), ErrParamNotFound)
	})
}

func TestNodeIDByTitle(t *testing.T) {
	w := mustParse(t)

	t.Run("finds a node", func(t *testing.T) {
		id, err := w.NodeIDByTitle("Prompt")
		require.NoError(t, err)
		assert.Equal(t, "6", id)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := w.NodeIDByTitle("No Such Node")
		assert.ErrorIs(t, err, ErrTitleNotFound)
	})

	t.Run("duplicate titles resolve deterministically", func(t *testing.T) {
		doc := `{
			"b": {"inputs": {}, "class_type": "X", "_meta": {"title": "Twin"}},
			"a": {"inputs": {}, "class_type": "X", "_meta": {"title": "Twin"}}
		}`
		dup, err := Parse([]byte(doc))
		require.NoError(t, err)

		first, err := dup.NodeIDByTitle("Twin")
		require.NoError(t, err)
		for range 5 {
			id, err := dup.NodeIDByTitle("Twin")
			require.NoError(t, err)
			assert.Equal(t, first, id)
		}
		assert.Equal(t, "a", first)
	})
}

func TestRoundTrip(t *testing.T) {
	w := mustParse(t)

	data, err := json.Marshal(w)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, w.Nodes(), again.Nodes())
	for _, info := range w.Nodes() {
		orig := w.nodes[info.ID]
		back := again.nodes[info.ID]
		require.NotNil(t, back)
		assert.Equal(t, orig.ClassType, back.ClassType)
		assert.Equal(t, orig.Inputs, back.Inputs)
		assert.Equal(t, orig.Meta, back.Meta)
	}
}

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	doc := `{"1": {"inputs": {"x": 1}, "class_type": "X", "_meta": {"title": "T"}, "is_changed": ["abc"]}}`
	w, err := Parse([]byte(doc))
	require.NoError(t, err)

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))
}

func TestRoundTripKeepsIntegersIntegral(t *testing.T) {
	w := mustParse(t)

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"seed":42`)
	assert.Contains(t, string(data), `"cfg":7.5`)
}

func TestLoadAndSaveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())

	out := filepath.Join(dir, "saved.json")
	require.NoError(t, w.SaveFile(out))

	again, err := LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, w.Nodes(), again.Nodes())
}

func TestLoadInlineDocument(t *testing.T) {
	w, err := Load(sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())
}
