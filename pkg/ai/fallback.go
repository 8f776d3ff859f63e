package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// FallbackService routes generation to a primary provider and falls back to a
// secondary one when the primary fails. A primary that keeps failing on
// connection or quota errors is skipped until its breaker half-opens.
type FallbackService struct {
	primary       TextGenerator
	secondary     TextGenerator
	primaryName   string
	secondaryName string
	breaker       *gobreaker.CircuitBreaker
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primaryName string, primary TextGenerator, secondaryName string, secondary TextGenerator) *FallbackService {
	return &FallbackService{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        primaryName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !(isConnectionError(err) || isQuotaError(err))
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("[AI] %s breaker: %s -> %s", name, from, to)
			},
		}),
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// Generate implements TextGenerator
func (f *FallbackService) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	out, err := f.breaker.Execute(func() (interface{}, error) {
		return f.primary.Generate(ctx, prompt, maxTokens, temperature)
	})
	if err == nil {
		return out.(string), nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		log.Printf("[AI] %s is paused, using %s", f.primaryName, f.secondaryName)
	case isConnectionError(err):
		log.Printf("[AI] %s connection failed: %v, falling back to %s", f.primaryName, err, f.secondaryName)
	case isQuotaError(err):
		log.Printf("[AI] %s quota exhausted: %v, falling back to %s", f.primaryName, err, f.secondaryName)
	default:
		log.Printf("[AI] %s error: %v, falling back to %s", f.primaryName, err, f.secondaryName)
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	text, secErr := f.secondary.Generate(ctx, prompt, maxTokens, temperature)
	if secErr != nil {
		return "", fmt.Errorf("%s failed: %v; %s failed: %w", f.primaryName, err, f.secondaryName, secErr)
	}
	return text, nil
}
