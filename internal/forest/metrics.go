package forest

// Accuracy returns the fraction of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// classScores holds per-class precision, recall, F1 and support.
type classScores struct {
	precision float64
	recall    float64
	f1        float64
	support   int
}

// perClass computes per-label scores over the union of labels seen in
// yTrue and yPred. Undefined ratios are 0.
func perClass(yTrue, yPred []int) map[int]classScores {
	tp := map[int]int{}
	predicted := map[int]int{}
	actual := map[int]int{}
	for i := range yTrue {
		actual[yTrue[i]]++
		predicted[yPred[i]]++
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
		}
	}

	labels := map[int]struct{}{}
	for l := range actual {
		labels[l] = struct{}{}
	}
	for l := range predicted {
		labels[l] = struct{}{}
	}

	out := make(map[int]classScores, len(labels))
	for l := range labels {
		var s classScores
		s.support = actual[l]
		if predicted[l] > 0 {
			s.precision = float64(tp[l]) / float64(predicted[l])
		}
		if actual[l] > 0 {
			s.recall = float64(tp[l]) / float64(actual[l])
		}
		if s.precision+s.recall > 0 {
			s.f1 = 2 * s.precision * s.recall / (s.precision + s.recall)
		}
		out[l] = s
	}
	return out
}

// weighted averages a per-class score by true-label support.
func weighted(yTrue, yPred []int, pick func(classScores) float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for _, s := range perClass(yTrue, yPred) {
		sum += pick(s) * float64(s.support)
	}
	return sum / float64(len(yTrue))
}

// WeightedPrecision returns precision averaged by class support.
func WeightedPrecision(yTrue, yPred []int) float64 {
	return weighted(yTrue, yPred, func(s classScores) float64 { return s.precision })
}

// WeightedRecall returns recall averaged by class support.
func WeightedRecall(yTrue, yPred []int) float64 {
	return weighted(yTrue, yPred, func(s classScores) float64 { return s.recall })
}

// WeightedF1 returns F1 averaged by class support.
func WeightedF1(yTrue, yPred []int) float64 {
	return weighted(yTrue, yPred, func(s classScores) float64 { return s.f1 })
}

// BinaryF1 returns the F1 score of the positive class 1.
func BinaryF1(yTrue, yPred []int) float64 {
	return perClass(yTrue, yPred)[1].f1
}

// Report bundles the scores recorded after training.
type Report struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate computes accuracy and weighted precision, recall and F1.
func Evaluate(yTrue, yPred []int) Report {
	return Report{
		Accuracy:  Accuracy(yTrue, yPred),
		Precision: WeightedPrecision(yTrue, yPred),
		Recall:    WeightedRecall(yTrue, yPred),
		F1:        WeightedF1(yTrue, yPred),
	}
}
