package authstate

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/authstate/logging"
	"github.com/MrEthical07/authstate/storage"
)

var _ Logger = (*logging.Logger)(nil)

func TestEngineLogsThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	tokens := newFailingStorage()
	tokens.getErr = storage.ErrUnavailable

	e, err := New().
		WithStorage(tokens).
		WithLogger(logging.New(&buf, "debug", false, "authstate")).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	e.Mount(context.Background())

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"component":"authstate"`) {
		t.Fatalf("expected structured warn line for storage failure, got %q", out)
	}
}
