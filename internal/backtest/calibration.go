package backtest

// Calibration measures agreement between a strategy's claimed per-number
// probabilities and what actually happened. Probabilities are on the 0-100
// percent scale; so are bin confidences and accuracies, which keeps ECE in
// [0, 100]. Brier stays on its conventional 0-1 scale.

const calibrationBins = 10

// CalibrationBin is one reliability-diagram bucket.
type CalibrationBin struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	Accuracy      float64 `json:"accuracy"`
}

// CalibrationReport summarizes calibration over every candidate-round pair
// that carried a probability.
type CalibrationReport struct {
	Bins    []CalibrationBin `json:"bins"`
	Samples int              `json:"samples"`
	ECE     float64          `json:"ece"`
	Brier   float64          `json:"brier"`
}

// Calibrate builds a calibration report from the records' predicted
// probabilities, or returns nil when no candidate carries one.
func Calibrate(records []EvaluationRecord) *CalibrationReport {
	type binAcc struct {
		count   int
		confSum float64
		hits    int
	}
	bins := [calibrationBins]binAcc{}
	brierSum := 0.0
	total := 0

	for _, record := range records {
		actual := make(map[int]bool, len(record.Actual))
		for _, n := range record.Actual {
			actual[n] = true
		}

		for _, c := range record.Predicted.Candidates {
			if c.Probability == nil {
				continue
			}
			p := *c.Probability

			indicator := 0.0
			if actual[c.Number] {
				indicator = 1.0
			}
			diff := p/100.0 - indicator
			brierSum += diff * diff

			idx := int(p / 10)
			if idx >= calibrationBins {
				idx = calibrationBins - 1
			}
			bins[idx].count++
			bins[idx].confSum += p
			if actual[c.Number] {
				bins[idx].hits++
			}
			total++
		}
	}

	if total == 0 {
		return nil
	}

	report := &CalibrationReport{
		Bins:    make([]CalibrationBin, calibrationBins),
		Samples: total,
		Brier:   brierSum / float64(total),
	}

	for i, b := range bins {
		bin := CalibrationBin{
			Low:   float64(i * 10),
			High:  float64(i*10 + 10),
			Count: b.count,
		}
		if b.count > 0 {
			bin.AvgConfidence = b.confSum / float64(b.count)
			bin.Accuracy = float64(b.hits) / float64(b.count) * 100
			weight := float64(b.count) / float64(total)
			ece := bin.AvgConfidence - bin.Accuracy
			if ece < 0 {
				ece = -ece
			}
			report.ECE += weight * ece
		}
		report.Bins[i] = bin
	}

	return report
}
