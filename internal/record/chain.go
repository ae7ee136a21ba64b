package record

import (
	"context"
	"fmt"
	"log/slog"
)

// Strategy is one attempt at extracting the encoded bytes.
type Strategy struct {
	Name string
	Run  func(Encoder) ([]byte, error)
}

// DefaultStrategies is the finalize order: stop, flush then stop, render
// trigger, buffer getter, finalize.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "stop", Run: func(e Encoder) ([]byte, error) { return e.Stop() }},
		{Name: "flush-stop", Run: func(e Encoder) ([]byte, error) {
			if err := e.Flush(); err != nil {
				return nil, err
			}
			return e.Stop()
		}},
		{Name: "render", Run: func(e Encoder) ([]byte, error) { return e.Render() }},
		{Name: "buffer", Run: func(e Encoder) ([]byte, error) { return e.Buffer() }},
		{Name: "finalize", Run: func(e Encoder) ([]byte, error) { return e.Finalize() }},
	}
}

func runStrategy(s Strategy, enc Encoder) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Run(enc)
}

// Finalize runs the strategies in order and returns the first non-empty
// buffer along with the name of the strategy that produced it. Failures are
// logged and skipped. The context is checked between strategies.
func Finalize(ctx context.Context, enc Encoder, strategies []Strategy, log *slog.Logger) ([]byte, string, error) {
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, "", encodingError("finalize canceled", err)
		}
		out, err := runStrategy(s, enc)
		if err != nil {
			log.Warn("finalize strategy failed", "strategy", s.Name, "backend", enc.Kind(), "err", err)
			continue
		}
		if len(out) == 0 {
			log.Debug("finalize strategy returned no data", "strategy", s.Name, "backend", enc.Kind())
			continue
		}
		log.Info("recording finalized", "strategy", s.Name, "backend", enc.Kind(), "bytes", len(out))
		return out, s.Name, nil
	}
	return nil, "", encodingError(fmt.Sprintf("%d strategies tried", len(strategies)), ErrChainExhausted)
}
