package backtest

import (
	"errors"
	"reflect"
	"testing"
)

func TestGenerateFoldsRollingExample(t *testing.T) {
	folds, err := GenerateFolds(10, testFoldConfig())
	if err != nil {
		t.Fatalf("GenerateFolds failed: %v", err)
	}

	expected := []Fold{
		{Index: 0, TrainStart: 0, TrainEnd: 4, TestStart: 5, TestEnd: 6},
		{Index: 1, TrainStart: 1, TrainEnd: 5, TestStart: 6, TestEnd: 7},
		{Index: 2, TrainStart: 2, TrainEnd: 6, TestStart: 7, TestEnd: 8},
		{Index: 3, TrainStart: 3, TrainEnd: 7, TestStart: 8, TestEnd: 9},
	}
	if !reflect.DeepEqual(folds, expected) {
		t.Fatalf("unexpected folds:\n got %+v\nwant %+v", folds, expected)
	}
}

func TestGenerateFoldsAnchored(t *testing.T) {
	cfg := testFoldConfig()
	cfg.WindowType = WindowAnchored

	folds, err := GenerateFolds(10, cfg)
	if err != nil {
		t.Fatalf("GenerateFolds failed: %v", err)
	}

	if len(folds) != 4 {
		t.Fatalf("expected 4 folds, got %d", len(folds))
	}
	for i, f := range folds {
		if f.TrainStart != 0 {
			t.Errorf("fold %d: anchored train must start at 0, got %d", i, f.TrainStart)
		}
		if f.TrainLen() != cfg.TrainSize+i*cfg.StepSize {
			t.Errorf("fold %d: expected expanding train length %d, got %d", i, cfg.TrainSize+i*cfg.StepSize, f.TrainLen())
		}
	}
}

func TestGenerateFoldsDeterministic(t *testing.T) {
	cfg := FoldConfig{TrainSize: 20, TestSize: 3, StepSize: 4, WindowType: WindowRolling}

	first, err := GenerateFolds(100, cfg)
	if err != nil {
		t.Fatalf("GenerateFolds failed: %v", err)
	}
	second, err := GenerateFolds(100, cfg)
	if err != nil {
		t.Fatalf("GenerateFolds failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different folds")
	}
}

func TestGenerateFoldsNoLeakage(t *testing.T) {
	configs := []FoldConfig{
		{TrainSize: 5, TestSize: 2, StepSize: 1, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 2, StepSize: 1, WindowType: WindowAnchored},
		{TrainSize: 12, TestSize: 1, StepSize: 3, WindowType: WindowRolling},
		{TrainSize: 7, TestSize: 4, StepSize: 2, MinTrainSize: 7, WindowType: WindowAnchored},
	}

	for _, cfg := range configs {
		folds, err := GenerateFolds(60, cfg)
		if err != nil {
			t.Fatalf("GenerateFolds(%+v) failed: %v", cfg, err)
		}
		if len(folds) == 0 {
			t.Fatalf("GenerateFolds(%+v) produced no folds", cfg)
		}

		for i, f := range folds {
			if f.TrainEnd >= f.TestStart {
				t.Errorf("%s fold %d: train overlaps test: %+v", cfg.WindowType, i, f)
			}
			if f.TestStart != f.TrainEnd+1 {
				t.Errorf("%s fold %d: test must start right after train: %+v", cfg.WindowType, i, f)
			}
			if f.TestEnd >= 60 {
				t.Errorf("%s fold %d: test exceeds sequence: %+v", cfg.WindowType, i, f)
			}
			if f.TestLen() != cfg.TestSize {
				t.Errorf("%s fold %d: expected test length %d, got %d", cfg.WindowType, i, cfg.TestSize, f.TestLen())
			}
			if i > 0 && f.TestStart-folds[i-1].TestStart != cfg.StepSize {
				t.Errorf("%s fold %d: test start did not advance by step: %+v", cfg.WindowType, i, f)
			}
		}
	}
}

func TestGenerateFoldsTooShort(t *testing.T) {
	cfg := testFoldConfig()

	for _, seqLen := range []int{0, 1, 5, 6} {
		folds, err := GenerateFolds(seqLen, cfg)
		if err != nil {
			t.Fatalf("GenerateFolds(%d) failed: %v", seqLen, err)
		}
		if len(folds) != 0 {
			t.Errorf("expected no folds for length %d, got %d", seqLen, len(folds))
		}
	}

	// Exactly one fold fits at train+test.
	folds, err := GenerateFolds(7, cfg)
	if err != nil {
		t.Fatalf("GenerateFolds(7) failed: %v", err)
	}
	if len(folds) != 1 {
		t.Fatalf("expected exactly one fold at minimal length, got %d", len(folds))
	}
}

func TestGenerateFoldsMinTrainStops(t *testing.T) {
	cfg := FoldConfig{TrainSize: 5, TestSize: 1, StepSize: 1, MinTrainSize: 6, WindowType: WindowRolling}

	folds, err := GenerateFolds(50, cfg)
	if err != nil {
		t.Fatalf("GenerateFolds failed: %v", err)
	}
	if len(folds) != 0 {
		t.Fatalf("expected generation to stop at min train violation, got %d folds", len(folds))
	}
}

func TestGenerateFoldsInvalidConfig(t *testing.T) {
	bad := []FoldConfig{
		{TrainSize: 0, TestSize: 1, StepSize: 1, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 0, StepSize: 1, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 1, StepSize: 0, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 1, StepSize: -2, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 1, StepSize: 1, MinTrainSize: -1, WindowType: WindowRolling},
		{TrainSize: 5, TestSize: 1, StepSize: 1, WindowType: "sliding"},
	}

	for _, cfg := range bad {
		if _, err := GenerateFolds(100, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("GenerateFolds(%+v): expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}
