package bootstrap

import (
	"context"
	"os"
	"testing"

	platformerrors "github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
)

// chdir mirrors t.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })
}

func TestInitGraphDependenciesAreOrdered(t *testing.T) {
	steps := InitGraph()
	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				t.Errorf("step %s depends on %s before it runs", step.ID, dep)
			}
		}
		seen[step.ID] = true
	}
}

func TestExecuteInitSteps(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHATTERBOX_CONFIG", "")
	t.Setenv("CHATTERBOX_LOG_DIR", t.TempDir())
	t.Setenv("CHATTERBOX_CACHE_DRIVER", "memory")
	t.Setenv("CHATTERBOX_DEVICE", "cpu")

	state := &appState{}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps: %v", err)
	}
	t.Cleanup(func() {
		if state.manager != nil {
			state.manager.Close(context.Background())
		}
		if state.logger != nil {
			state.logger.Close()
		}
	})

	if state.config == nil || state.logger == nil {
		t.Fatal("config or logger missing after init")
	}
	if state.manager == nil {
		t.Fatal("model manager missing after init")
	}
	if state.manager.Device() != "cpu" {
		t.Errorf("device = %s", state.manager.Device())
	}
	if state.db != nil {
		t.Error("database opened although cache driver is memory")
	}
}

func TestExecuteInitStepsRejectsUnmetDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "b",
			DependsOn: []string{"a"},
			Execute: func(context.Context, *appState) error {
				return nil
			},
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Errorf("kind = %v", err)
	}
}

func TestExecuteInitStepsRequiresState(t *testing.T) {
	if err := executeInitSteps(context.Background(), InitGraph(), nil); err == nil {
		t.Fatal("expected error for nil state")
	}
}
