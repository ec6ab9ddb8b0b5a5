package classifier

import (
	"math"
	"sort"

	"github.com/hyeonsu-kang/docuclass/internal/core/domain"
)

const topKLimit = 5

// softmax converts logits to probabilities, subtracting the max logit
// first so large values do not overflow.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// predictTask turns one head's logits into a prediction. The top-k list
// holds min(5, num_labels) entries sorted by descending probability,
// ties broken by the lower class index.
func predictTask(logits []float64, mapping LabelMapping, withTopK bool) domain.TaskPrediction {
	probs := softmax(logits)

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	pred := domain.TaskPrediction{
		Label:      mapping.Labels[best],
		Confidence: probs[best],
	}
	if !withTopK {
		return pred
	}

	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		if probs[indices[a]] != probs[indices[b]] {
			return probs[indices[a]] > probs[indices[b]]
		}
		return indices[a] < indices[b]
	})

	k := topKLimit
	if len(indices) < k {
		k = len(indices)
	}
	pred.TopK = make([]domain.LabelScore, 0, k)
	for _, idx := range indices[:k] {
		pred.TopK = append(pred.TopK, domain.LabelScore{
			Label: mapping.Labels[idx],
			Score: probs[idx],
		})
	}
	return pred
}
