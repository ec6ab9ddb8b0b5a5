package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

// LabelMapping holds one task's class-index-to-label table as exported
// alongside the trained model in label_mappings.json.
type LabelMapping struct {
	Labels    []string
	NumLabels int
}

type rawTaskMapping struct {
	ID2Label  map[string]string `json:"id2label"`
	NumLabels int               `json:"num_labels"`
}

// LoadLabelMappings reads label_mappings.json and requires entries for
// both classification tasks.
func LoadLabelMappings(path string) (map[string]LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label mappings: %w", err)
	}

	var raw map[string]rawTaskMapping
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse label mappings: %w", err)
	}

	out := make(map[string]LabelMapping, len(raw))
	for task, m := range raw {
		mapping, err := buildMapping(task, m)
		if err != nil {
			return nil, err
		}
		out[task] = mapping
	}

	for _, task := range []string{domain.TaskAgency, domain.TaskDocumentType} {
		if _, ok := out[task]; !ok {
			return nil, fmt.Errorf("label mappings missing task %q", task)
		}
	}
	return out, nil
}

func buildMapping(task string, raw rawTaskMapping) (LabelMapping, error) {
	n := raw.NumLabels
	if n == 0 {
		n = len(raw.ID2Label)
	}
	if n == 0 {
		return LabelMapping{}, fmt.Errorf("task %q has no labels", task)
	}
	if len(raw.ID2Label) != n {
		return LabelMapping{}, fmt.Errorf("task %q: num_labels=%d but %d id2label entries", task, n, len(raw.ID2Label))
	}

	labels := make([]string, n)
	for key, label := range raw.ID2Label {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= n {
			return LabelMapping{}, fmt.Errorf("task %q: invalid class index %q", task, key)
		}
		labels[idx] = label
	}
	for i, label := range labels {
		if label == "" {
			return LabelMapping{}, fmt.Errorf("task %q: class index %d has no label", task, i)
		}
	}
	return LabelMapping{Labels: labels, NumLabels: n}, nil
}
