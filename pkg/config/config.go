package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultModelFile is the model filename assumed when a descriptor omits one.
const DefaultModelFile = "model.onnx"

// Identity is a named wake-detection target backed by one model file and one
// threshold. Threshold is always resolved: descriptors that omit it inherit
// the global default at load time.
type Identity struct {
	Name      string
	ModelPath string
	Threshold float32
	Wakewords []string
}

// Result carries the resolved identity table plus non-fatal warnings collected
// while scanning, in the order they were encountered.
type Result struct {
	Identities []Identity
	Warnings   []string
}

// descriptor is the on-disk per-identity config record (config.json, or a
// YAML variant for hand-authored setups).
type descriptor struct {
	Model     string   `json:"model" yaml:"model"`
	Threshold *float32 `json:"threshold" yaml:"threshold"`
	Wakewords []string `json:"wakewords" yaml:"wakewords"`
}

var descriptorNames = []string{"config.json", "config.yaml", "config.yml"}

// Resolve builds the identity table. If dir is non-empty each immediate
// subdirectory holding a readable descriptor becomes a candidate identity
// named after the subdirectory; otherwise one identity is synthesized per
// legacy model path, named after the file's base name. A non-empty filter
// restricts directory mode to the named identities; unknown names are
// silently ignored. A missing directory yields zero identities, not an error.
// Two identities resolving to the same name are rejected.
func Resolve(dir string, filter, legacyPaths []string, defaultThreshold float32) (Result, error) {
	var res Result
	if dir != "" {
		if err := resolveDir(&res, dir, filter, defaultThreshold); err != nil {
			return Result{}, err
		}
	} else {
		for _, p := range legacyPaths {
			res.Identities = append(res.Identities, Identity{
				Name:      baseName(p),
				ModelPath: p,
				Threshold: defaultThreshold,
			})
		}
	}
	seen := make(map[string]struct{}, len(res.Identities))
	for _, id := range res.Identities {
		if _, dup := seen[id.Name]; dup {
			return Result{}, fmt.Errorf("duplicate model identifier %q", id.Name)
		}
		seen[id.Name] = struct{}{}
	}
	return res, nil
}

func resolveDir(res *Result, dir string, filter []string, defaultThreshold float32) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read wakewords directory %s: %w", dir, err)
	}
	wanted := make(map[string]struct{}, len(filter))
	for _, name := range filter {
		wanted[name] = struct{}{}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(wanted) > 0 {
			if _, ok := wanted[name]; !ok {
				continue
			}
		}
		sub := filepath.Join(dir, name)
		desc, found, err := readDescriptor(sub)
		if !found {
			continue
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		modelFile := desc.Model
		if modelFile == "" {
			modelFile = DefaultModelFile
		}
		modelPath := filepath.Join(sub, modelFile)
		if _, err := os.Stat(modelPath); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: model file %s not found", name, modelFile))
			continue
		}
		threshold := defaultThreshold
		if desc.Threshold != nil {
			threshold = *desc.Threshold
		}
		res.Identities = append(res.Identities, Identity{
			Name:      name,
			ModelPath: modelPath,
			Threshold: threshold,
			Wakewords: desc.Wakewords,
		})
	}
	return nil
}

// readDescriptor loads the first descriptor file present in dir. found is
// false when the directory carries no descriptor at all, which just means it
// is not an identity.
func readDescriptor(dir string) (desc descriptor, found bool, err error) {
	for _, name := range descriptorNames {
		path := filepath.Join(dir, name)
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		found = true
		if strings.HasSuffix(name, ".json") {
			err = json.Unmarshal(b, &desc)
		} else {
			err = yaml.Unmarshal(b, &desc)
		}
		if err != nil {
			err = fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return desc, true, err
	}
	return descriptor{}, false, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Table indexes identities by model identifier for dispatch.
func Table(identities []Identity) map[string]Identity {
	table := make(map[string]Identity, len(identities))
	for _, id := range identities {
		table[id.Name] = id
	}
	return table
}

// Names lists identity names in resolution order.
func Names(identities []Identity) []string {
	names := make([]string, len(identities))
	for i, id := range identities {
		names[i] = id.Name
	}
	return names
}
