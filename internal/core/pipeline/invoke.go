package pipeline

import (
	"context"
	"errors"
	"log"
	"regexp"
	"time"
)

// ModelTransport is one way of reaching the generative model. The SDK client
// and the raw HTTP endpoint both satisfy it.
type ModelTransport interface {
	Generate(ctx context.Context, model, system, user string) (string, error)
}

// ErrOverloaded is the only error Invoke surfaces after exhausting every
// candidate model and backoff slot. Individual transport errors are logged,
// never returned, so upstream error formats don't leak to clients.
var ErrOverloaded = errors.New("model temporarily overloaded, please retry in a moment")

var transientRe = regexp.MustCompile(`(?i)overloaded|resource.*exhausted|rate|429|unavailable|503`)

// IsTransient classifies an upstream failure as likely-to-succeed-on-retry
// based on its message.
func IsTransient(err error) bool {
	return err != nil && transientRe.MatchString(err.Error())
}

// DefaultBackoff is the per-slot sleep schedule used between retries.
var DefaultBackoff = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
}

// Invoker calls the model through a primary transport with a fallback
// transport, retrying across an ordered list of candidate model identifiers.
// Candidates are tried sequentially, never concurrently, to avoid duplicate
// spend against a metered API.
type Invoker struct {
	Primary  ModelTransport
	Fallback ModelTransport
	Models   []string
	Backoff  []time.Duration

	// Sleep is swappable in tests; nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

func (iv *Invoker) sleep(ctx context.Context, d time.Duration) {
	if iv.Sleep != nil {
		iv.Sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (iv *Invoker) backoff() []time.Duration {
	if len(iv.Backoff) > 0 {
		return iv.Backoff
	}
	return DefaultBackoff
}

// Invoke runs the full retry ladder: for each candidate model, for each
// backoff slot, try the primary transport; a non-empty response wins
// immediately. A transient failure sleeps the slot before the fallback
// attempt, a non-transient one goes to the fallback right away. When
// everything is exhausted the caller gets ErrOverloaded and nothing else.
func (iv *Invoker) Invoke(ctx context.Context, system, prompt string) (string, error) {
	for _, model := range iv.Models {
		for slot, delay := range iv.backoff() {
			text, err := iv.Primary.Generate(ctx, model, system, prompt)
			if err == nil && text != "" {
				return text, nil
			}
			if err != nil {
				log.Printf("model %s attempt %d (primary): %v", model, slot, err)
				if IsTransient(err) {
					iv.sleep(ctx, delay)
				}
			}
			if ctx.Err() != nil {
				return "", ErrOverloaded
			}

			text, err = iv.Fallback.Generate(ctx, model, system, prompt)
			if err == nil && text != "" {
				return text, nil
			}
			if err != nil {
				log.Printf("model %s attempt %d (fallback): %v", model, slot, err)
				if !IsTransient(err) {
					break // next candidate model
				}
			}
			if ctx.Err() != nil {
				return "", ErrOverloaded
			}
		}
	}
	return "", ErrOverloaded
}

// InvokeInteractive bounds total latency for user-facing requests. The
// primary transport races an overall deadline with the preferred model only;
// on timeout or error one fallback attempt runs with the smaller prompt
// window. Any failure yields empty text, never an error, and the caller must
// treat empty as "no result, do not retry automatically".
func (iv *Invoker) InvokeInteractive(ctx context.Context, system, prompt, smallerPrompt string, overall time.Duration) string {
	if len(iv.Models) == 0 {
		return ""
	}
	model := iv.Models[0]

	attemptCtx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	text, err := iv.Primary.Generate(attemptCtx, model, system, prompt)
	if err == nil && text != "" {
		return text
	}
	if err != nil {
		log.Printf("model %s interactive (primary): %v", model, err)
	}
	if ctx.Err() != nil {
		return ""
	}

	fbCtx, fbCancel := context.WithTimeout(ctx, overall)
	defer fbCancel()

	text, err = iv.Fallback.Generate(fbCtx, model, system, smallerPrompt)
	if err != nil {
		log.Printf("model %s interactive (fallback): %v", model, err)
		return ""
	}
	return text
}
