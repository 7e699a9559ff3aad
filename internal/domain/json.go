package domain

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Codecs for the jsonb list columns. Decoders tolerate missing/null/empty
// payloads so callers can branch on presence.

func EncodeEmbedding(v []float32) datatypes.JSON {
	if len(v) == 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func DecodeEmbedding(j datatypes.JSON) ([]float32, bool) {
	if jsonEmpty(j) {
		return nil, false
	}
	var out []float32
	if err := json.Unmarshal(j, &out); err == nil && len(out) > 0 {
		return out, true
	}
	var tmp []float64
	if err := json.Unmarshal(j, &tmp); err != nil || len(tmp) == 0 {
		return nil, false
	}
	out = make([]float32, 0, len(tmp))
	for _, f := range tmp {
		out = append(out, float32(f))
	}
	return out, true
}

func EncodeSubjects(v []string) datatypes.JSON {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func DecodeSubjects(j datatypes.JSON) []string {
	if jsonEmpty(j) {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func EncodeUUIDs(v []uuid.UUID) datatypes.JSON {
	if v == nil {
		v = []uuid.UUID{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func DecodeUUIDs(j datatypes.JSON) []uuid.UUID {
	if jsonEmpty(j) {
		return nil
	}
	var out []uuid.UUID
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func jsonEmpty(j datatypes.JSON) bool {
	if len(j) == 0 {
		return true
	}
	s := strings.TrimSpace(string(j))
	return s == "" || s == "null" || s == "[]"
}
