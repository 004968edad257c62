package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Visualization is the structured payload an assistant answer may carry for
// the side panel. Field names mirror the synthesis engine's wire format.
type Visualization struct {
	Drug      string           `json:"drug,omitempty"`
	Condition ConditionList    `json:"condition,omitempty"`
	Market    *MarketInsight   `json:"market,omitempty"`
	Clinical  *ClinicalInsight `json:"clinical,omitempty"`
}

// MarketInsight summarises the commercial opportunity.
type MarketInsight struct {
	Timeline          []TimelinePoint `json:"timeline,omitempty"`
	CurrentUSDBn      float64         `json:"current_usd_bn,omitempty"`
	Forecast2030USDBn float64         `json:"forecast_2030_usd_bn,omitempty"`
	PatientSplit      *PatientSplit   `json:"patient_split,omitempty"`
}

// TimelinePoint is a single market projection sample.
type TimelinePoint struct {
	Name  string  `json:"name,omitempty"`
	Value float64 `json:"value"`
}

// PatientSplit describes treated vs. total population, in millions.
type PatientSplit struct {
	TreatedPopulationM float64 `json:"treated_population_m,omitempty"`
	TotalPopulationM   float64 `json:"total_population_m,omitempty"`
}

// ClinicalInsight summarises the trial pipeline.
type ClinicalInsight struct {
	Phases      map[string]float64 `json:"phases,omitempty"`
	TotalTrials float64            `json:"total_trials,omitempty"`
}

// ConditionList tolerates the engine emitting either a single string or an
// array of indication names.
type ConditionList []string

func (c *ConditionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*c = ConditionList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*c = ConditionList(many)
	return nil
}

// ParseVisualization decodes a visualization payload. History rows sometimes
// carry the payload double-encoded as a JSON string; that case is unwrapped
// before decoding. A null or empty payload yields nil.
func ParseVisualization(raw json.RawMessage) (*Visualization, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '"' {
		inner, err := strconv.Unquote(string(data))
		if err != nil {
			return nil, fmt.Errorf("unwrap visualization string: %w", err)
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return nil, nil
		}
	}
	var viz Visualization
	if err := json.Unmarshal(data, &viz); err != nil {
		return nil, fmt.Errorf("decode visualization: %w", err)
	}
	return &viz, nil
}
