package backtest

// Fold is one (train, test) index pair over the draw sequence. Indices are
// inclusive positions into the sequence, not round numbers. All train
// indices precede all test indices.
type Fold struct {
	Index      int `json:"index"`
	TrainStart int `json:"train_start"`
	TrainEnd   int `json:"train_end"`
	TestStart  int `json:"test_start"`
	TestEnd    int `json:"test_end"`
}

// TrainLen returns the number of training rounds in the fold.
func (f Fold) TrainLen() int {
	return f.TrainEnd - f.TrainStart + 1
}

// TestLen returns the number of test rounds in the fold.
func (f Fold) TestLen() int {
	return f.TestEnd - f.TestStart + 1
}

// GenerateFolds splits a sequence of the given length into ordered
// walk-forward folds. It is a pure function: identical inputs always yield
// the identical fold list. A sequence too short for even one fold yields an
// empty slice, not an error.
func GenerateFolds(sequenceLength int, cfg FoldConfig) ([]Fold, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	folds := []Fold{}
	for startIdx := 0; ; startIdx += cfg.StepSize {
		trainStart := startIdx
		if cfg.WindowType == WindowAnchored {
			trainStart = 0
		}
		trainEnd := startIdx + cfg.TrainSize - 1
		testStart := trainEnd + 1
		testEnd := testStart + cfg.TestSize - 1

		if trainEnd >= sequenceLength || testEnd >= sequenceLength {
			break
		}
		if trainEnd-trainStart+1 < cfg.MinTrainSize {
			break
		}

		folds = append(folds, Fold{
			Index:      len(folds),
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  testStart,
			TestEnd:    testEnd,
		})
	}

	return folds, nil
}
