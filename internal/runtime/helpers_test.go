package runtime_test

import (
	"context"
	"errors"

	"github.com/avelhao/parley/pkg/ports"
)

// fakeCompleter is a scripted completion backend for tests.
type fakeCompleter struct {
	object  map[string]any
	text    string
	err     error
	calls   int
	lastReq ports.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ports.Completion{Text: f.text, Object: f.object}, nil
}

var errBackendDown = errors.New("backend down")
