package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeIdentity(t *testing.T, dir, name, descriptorFile, descriptor string, withModel bool) {
	t.Helper()
	sub := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(sub, 0755))
	if descriptorFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(sub, descriptorFile), []byte(descriptor), 0644))
	}
	if withModel {
		require.NoError(t, os.WriteFile(filepath.Join(sub, DefaultModelFile), []byte("onnx"), 0644))
	}
}

func TestResolveDirectory(t *testing.T) {
	dir := t.TempDir()
	writeIdentity(t, dir, "seraphina", "config.json", `{"threshold":0.6,"wakewords":["hey seraphina"]}`, true)
	writeIdentity(t, dir, "luna", "config.json", `{}`, false)

	res, err := Resolve(dir, nil, nil, 0.5)
	require.NoError(t, err)
	require.Len(t, res.Identities, 1)
	require.Equal(t, "seraphina", res.Identities[0].Name)
	require.Equal(t, float32(0.6), res.Identities[0].Threshold)
	require.Equal(t, []string{"hey seraphina"}, res.Identities[0].Wakewords)
	require.Equal(t, filepath.Join(dir, "seraphina", "model.onnx"), res.Identities[0].ModelPath)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "luna")
}

func TestResolveDefaultThreshold(t *testing.T) {
	dir := t.TempDir()
	writeIdentity(t, dir, "nova", "config.json", `{}`, true)

	res, err := Resolve(dir, nil, nil, 0.7)
	require.NoError(t, err)
	require.Len(t, res.Identities, 1)
	require.Equal(t, float32(0.7), res.Identities[0].Threshold)
}

func TestResolveYAMLDescriptor(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nova")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "config.yaml"),
		[]byte("model: custom.onnx\nthreshold: 0.8\nwakewords:\n  - hey nova\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "custom.onnx"), []byte("onnx"), 0644))

	res, err := Resolve(dir, nil, nil, 0.5)
	require.NoError(t, err)
	require.Len(t, res.Identities, 1)
	require.Equal(t, float32(0.8), res.Identities[0].Threshold)
	require.Equal(t, filepath.Join(sub, "custom.onnx"), res.Identities[0].ModelPath)
	require.Equal(t, []string{"hey nova"}, res.Identities[0].Wakewords)
}

func TestResolveMalformedDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeIdentity(t, dir, "broken", "config.json", `{not json`, true)
	writeIdentity(t, dir, "fine", "config.json", `{}`, true)

	res, err := Resolve(dir, nil, nil, 0.5)
	require.NoError(t, err, "a malformed descriptor must not abort startup")
	require.Len(t, res.Identities, 1)
	require.Equal(t, "fine", res.Identities[0].Name)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "broken")
}

func TestResolveSkipsDirsWithoutDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeIdentity(t, dir, "notes", "", "", false)

	res, err := Resolve(dir, nil, nil, 0.5)
	require.NoError(t, err)
	require.Empty(t, res.Identities)
	require.Empty(t, res.Warnings, "a directory without a descriptor is not an identity")
}

func TestResolveFilter(t *testing.T) {
	dir := t.TempDir()
	writeIdentity(t, dir, "seraphina", "config.json", `{}`, true)
	writeIdentity(t, dir, "luna", "config.json", `{}`, true)

	res, err := Resolve(dir, []string{"luna", "ghost"}, nil, 0.5)
	require.NoError(t, err)
	require.Equal(t, []string{"luna"}, Names(res.Identities),
		"unknown filter names are silently excluded")
}

func TestResolveMissingDirectory(t *testing.T) {
	res, err := Resolve(filepath.Join(t.TempDir(), "nope"), nil, nil, 0.5)
	require.NoError(t, err, "a missing directory yields zero identities, not an error")
	require.Empty(t, res.Identities)
	require.Empty(t, res.Warnings)
}

func TestResolveLegacyPaths(t *testing.T) {
	res, err := Resolve("", nil, []string{"/models/hey_jarvis.onnx", "/other/alexa.onnx"}, 0.5)
	require.NoError(t, err)
	require.Equal(t, []string{"hey_jarvis", "alexa"}, Names(res.Identities))
	for _, id := range res.Identities {
		require.Equal(t, float32(0.5), id.Threshold)
		require.Empty(t, id.Wakewords)
	}
}

func TestResolveRejectsDuplicateIdentifiers(t *testing.T) {
	_, err := Resolve("", nil, []string{"/a/wake.onnx", "/b/wake.onnx"}, 0.5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate model identifier")
}

func TestTableAndNames(t *testing.T) {
	ids := []Identity{
		{Name: "a", Threshold: 0.1},
		{Name: "b", Threshold: 0.2},
	}
	require.Equal(t, []string{"a", "b"}, Names(ids))
	table := Table(ids)
	require.Equal(t, float32(0.2), table["b"].Threshold)
}
