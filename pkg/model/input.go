package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// InputFromJson reads a snapshot file and validates it.
func InputFromJson(file string) (Snapshot, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Snapshot{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(inputJson)
}

// DecodeSnapshot decodes a loosely-typed document into a validated snapshot.
// Missing constraints fall back to DefaultConstraints.
func DecodeSnapshot(inputJson map[string]any) (Snapshot, error) {
	raw := Snapshot{Constraints: DefaultConstraints()}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &raw,
	})
	if err != nil {
		return Snapshot{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return Snapshot{}, fmt.Errorf("cannot decode input: %w", err)
	}
	return NewSnapshot(raw)
}
