package persistence

import (
	"bytes"
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
)

// DocumentKey is the backend key holding the air state document
const DocumentKey = "airbladder"

// document is the durable shape of the store
type document struct {
	Vehicles map[string]float64 `toml:"vehicles"`
}

func encodeRecords(records map[string]float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(document{Vehicles: records}); err != nil {
		return nil, fmt.Errorf("encoding air state: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecords(data []byte) (map[string]float64, error) {
	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding air state: %w", err)
	}

	records := make(map[string]float64, len(doc.Vehicles))
	for id, v := range doc.Vehicles {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		records[id] = v
	}
	return records, nil
}
