// Package completion streams model output through an ordered chain of
// providers: the local model server first, then the cloud backend's
// candidate models, then whatever the cloud backend advertises.
package completion

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/metrics"
)

// DefaultMaxDiscoveryAttempts bounds how many discovered models are tried.
const DefaultMaxDiscoveryAttempts = 5

// Stream is an open provider response. Next returns io.EOF at the end.
type Stream interface {
	Next() (string, error)
	Close() error
}

// LocalProvider is a model server reachable without credentials.
type LocalProvider interface {
	Name() string
	Model() string
	Open(ctx context.Context, turns []domain.Turn) (Stream, error)
}

// CloudProvider is a hosted backend that serves several models.
type CloudProvider interface {
	Name() string
	// Configured reports whether credentials are present. An unconfigured
	// provider is never called.
	Configured() bool
	Open(ctx context.Context, model string, turns []domain.Turn) (Stream, error)
	// DiscoverModels lists models that support streamed generation.
	DiscoverModels(ctx context.Context) ([]string, error)
}

// Options tune a single completion.
type Options struct {
	// PreferredModel is tried before the candidate list. It is a hint for
	// the cloud backend only.
	PreferredModel string
}

// Config holds the fallback chain settings.
type Config struct {
	CloudModels          []string
	MaxDiscoveryAttempts int
}

// Gateway resolves a provider for each request and streams its output.
type Gateway struct {
	local        LocalProvider
	cloud        CloudProvider
	models       []string
	maxDiscovery int
	logger       zerolog.Logger
}

// NewGateway creates a gateway. Either provider may be nil.
func NewGateway(local LocalProvider, cloud CloudProvider, cfg Config, logger zerolog.Logger) *Gateway {
	maxDiscovery := cfg.MaxDiscoveryAttempts
	if maxDiscovery < 0 {
		maxDiscovery = 0
	}
	return &Gateway{
		local:        local,
		cloud:        cloud,
		models:       dedupe(cfg.CloudModels),
		maxDiscovery: maxDiscovery,
		logger:       logger.With().Str("component", "completion").Logger(),
	}
}

// Stream returns a lazy, single-use sequence of fragments for turns.
// Nothing is contacted until the sequence is ranged over, and ranging it a
// second time yields nothing. Failures arrive as one final diagnostic
// fragment. Stopping the range early closes the provider stream.
func (g *Gateway) Stream(ctx context.Context, turns []domain.Turn, opts Options) iter.Seq[domain.Fragment] {
	var used atomic.Bool
	return func(yield func(domain.Fragment) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}

		res := g.open(ctx, turns, opts)
		if res.stream == nil {
			metrics.Diagnostics.WithLabelValues(res.reason).Inc()
			yield(domain.Fragment{Text: res.diagnostic(), Diagnostic: true})
			return
		}
		defer res.stream.Close()

		for {
			text, err := res.stream.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				g.logger.Warn().Err(err).Str("provider", res.provider).Msg("provider stream failed")
				metrics.Diagnostics.WithLabelValues("mid_stream").Inc()
				yield(domain.Fragment{Text: midStreamDiagnostic(res.provider, err), Diagnostic: true})
				return
			}
			if text == "" {
				continue
			}
			metrics.FragmentsStreamed.WithLabelValues(res.provider).Inc()
			if !yield(domain.Fragment{Text: text}) {
				return
			}
		}
	}
}

// openResult is the outcome of walking the fallback chain.
type openResult struct {
	stream   Stream
	provider string
	attempts []Attempt
	// reason and missingKey describe why nothing opened.
	reason     string
	missingKey string
}

func (r *openResult) diagnostic() string {
	if r.missingKey != "" {
		return missingKeyDiagnostic(r.missingKey, r.attempts)
	}
	return exhaustedDiagnostic(r.attempts)
}

func (g *Gateway) open(ctx context.Context, turns []domain.Turn, opts Options) *openResult {
	res := &openResult{reason: "exhausted"}

	if g.local != nil {
		stream, err := g.local.Open(ctx, turns)
		if g.record(res, g.local.Name(), g.local.Model(), stream, err) {
			return res
		}
	}

	if g.cloud == nil || !g.cloud.Configured() {
		name := "gemini"
		if g.cloud != nil {
			name = g.cloud.Name()
		}
		metrics.ProviderAttempts.WithLabelValues(name, metrics.OutcomeSkipped).Inc()
		res.reason = "missing_key"
		res.missingKey = apiKeyName(name)
		return res
	}

	tried := make(map[string]bool)
	candidates := g.models
	if opts.PreferredModel != "" {
		candidates = dedupe(append([]string{opts.PreferredModel}, g.models...))
	}
	for _, model := range candidates {
		if ctx.Err() != nil {
			g.recordCancelled(res, ctx.Err())
			return res
		}
		tried[model] = true
		stream, err := g.cloud.Open(ctx, model, turns)
		if g.record(res, g.cloud.Name(), model, stream, err) {
			return res
		}
	}

	if g.maxDiscovery == 0 || ctx.Err() != nil {
		return res
	}

	discovered, err := g.cloud.DiscoverModels(ctx)
	if err != nil {
		g.record(res, g.cloud.Name(), "model discovery", nil, err)
		return res
	}

	remaining := g.maxDiscovery
	for _, model := range discovered {
		if remaining == 0 || ctx.Err() != nil {
			break
		}
		if tried[model] {
			continue
		}
		tried[model] = true
		remaining--
		stream, err := g.cloud.Open(ctx, model, turns)
		if g.record(res, g.cloud.Name(), model, stream, err) {
			return res
		}
	}
	return res
}

// record stores one attempt and reports whether it opened a stream.
func (g *Gateway) record(res *openResult, provider, model string, stream Stream, err error) bool {
	if err == nil && stream != nil {
		metrics.ProviderAttempts.WithLabelValues(provider, metrics.OutcomeOpened).Inc()
		g.logger.Debug().Str("provider", provider).Str("model", model).Int("failed_attempts", len(res.attempts)).Msg("provider stream opened")
		res.stream = stream
		res.provider = provider
		return true
	}
	if err == nil {
		err = errors.New("provider returned no stream")
	}
	metrics.ProviderAttempts.WithLabelValues(provider, metrics.OutcomeFailed).Inc()
	g.logger.Warn().Err(err).Str("provider", provider).Str("model", model).Msg("provider attempt failed")
	res.attempts = append(res.attempts, Attempt{Provider: provider, Model: model, Err: err})
	return false
}

func (g *Gateway) recordCancelled(res *openResult, err error) {
	res.attempts = append(res.attempts, Attempt{Provider: "gateway", Err: err})
}

func dedupe(models []string) []string {
	seen := make(map[string]bool, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
