package synth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/capvox/capvox/synth"
	"github.com/capvox/capvox/synth/mock"
)

func validRequest() synth.Request {
	return synth.Request{Text: "hello", Volume: 0.8, Rate: 1.0, Pitch: 1.0}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*synth.Request)
		wantErr bool
	}{
		{"valid", func(*synth.Request) {}, false},
		{"empty text", func(r *synth.Request) { r.Text = "" }, true},
		{"volume too high", func(r *synth.Request) { r.Volume = 1.1 }, true},
		{"negative volume", func(r *synth.Request) { r.Volume = -0.1 }, true},
		{"zero rate", func(r *synth.Request) { r.Rate = 0 }, true},
		{"zero pitch", func(r *synth.Request) { r.Pitch = 0 }, true},
		{"volume boundary", func(r *synth.Request) { r.Volume = 1.0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChainFallsBack(t *testing.T) {
	failing := mock.New()
	failing.FailWith(errors.New("engine offline"))
	healthy := mock.New()

	chain, err := synth.NewChain(failing, healthy)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	if err := chain.Speak(context.Background(), validRequest()); err != nil {
		t.Fatalf("Speak failed despite healthy fallback: %v", err)
	}
	if len(healthy.Requests()) != 1 {
		t.Errorf("expected fallback sink to receive the request, got %d", len(healthy.Requests()))
	}
}

func TestChainAllFail(t *testing.T) {
	a, b := mock.New(), mock.New()
	a.FailWith(errors.New("down"))
	b.FailWith(errors.New("also down"))

	chain, err := synth.NewChain(a, b)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}
	if err := chain.Speak(context.Background(), validRequest()); err == nil {
		t.Error("expected error when every sink fails")
	}
}

func TestChainCancelAllReachesEverySink(t *testing.T) {
	a, b := mock.New(), mock.New()
	chain, err := synth.NewChain(a, b)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	chain.CancelAll()
	if a.Cancellations() != 1 || b.Cancellations() != 1 {
		t.Errorf("expected one cancellation per sink, got %d and %d", a.Cancellations(), b.Cancellations())
	}
}

func TestChainNeedsSinks(t *testing.T) {
	if _, err := synth.NewChain(); err == nil {
		t.Error("expected error for empty chain")
	}
}
