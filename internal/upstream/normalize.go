package upstream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

// Normalized is the flat record list extracted from an upstream payload.
type Normalized struct {
	List        []models.RawRecord
	GeneratedAt string
}

// payloadKind discriminates the accepted top-level payload shapes.
type payloadKind int

const (
	payloadUnknown   payloadKind = iota
	payloadList                  // [container, container, ...]
	payloadContainer             // {"codes": ..., "meta": ...}
)

// containerKind discriminates a single container within the payload.
type containerKind int

const (
	containerInvalid containerKind = iota
	containerCodes                 // object with a "codes" array
	containerRecord                // object that is itself a record
)

func classifyPayload(data any) payloadKind {
	switch v := data.(type) {
	case []any:
		return payloadList
	case map[string]any:
		if _, ok := v["codes"]; ok {
			return payloadContainer
		}
	}
	return payloadUnknown
}

func classifyContainer(container any) (map[string]any, containerKind) {
	obj, ok := container.(map[string]any)
	if !ok {
		return nil, containerInvalid
	}
	if _, ok := obj["codes"].([]any); ok {
		return obj, containerCodes
	}
	return obj, containerRecord
}

// Decode reads a JSON payload and normalizes it. Only invalid JSON is an
// error; unexpected shapes normalize to an empty list.
func Decode(r io.Reader) (Normalized, error) {
	var data any
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return Normalized{}, fmt.Errorf("failed to decode upstream payload: %w", err)
	}
	return Normalize(data), nil
}

// Normalize flattens an upstream payload into records in encounter order and
// picks the first non-empty meta.generated value.
func Normalize(data any) Normalized {
	var out Normalized

	switch classifyPayload(data) {
	case payloadList:
		for _, container := range data.([]any) {
			out.addContainer(container)
		}
	case payloadContainer:
		out.addContainer(data)
	}

	if out.List == nil {
		out.List = []models.RawRecord{}
	}
	return out
}

func (n *Normalized) addContainer(container any) {
	obj, kind := classifyContainer(container)
	if kind == containerInvalid {
		return
	}

	if n.GeneratedAt == "" {
		n.GeneratedAt = metaGenerated(obj)
	}

	switch kind {
	case containerCodes:
		for _, entry := range obj["codes"].([]any) {
			if record, ok := entry.(map[string]any); ok {
				n.List = append(n.List, models.RawRecord(record))
			}
		}
	case containerRecord:
		n.List = append(n.List, models.RawRecord(obj))
	}
}

// metaGenerated reads meta.generated as a string or as meta.generated.human.
func metaGenerated(container map[string]any) string {
	meta, ok := container["meta"].(map[string]any)
	if !ok {
		return ""
	}
	switch generated := meta["generated"].(type) {
	case string:
		return generated
	case map[string]any:
		if human, ok := generated["human"].(string); ok {
			return human
		}
	}
	return ""
}
