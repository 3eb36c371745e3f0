package ratelimit

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based tests for the fixed-window limiter invariants.

func TestLimiter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property 1: remaining is never negative and always equals
	// max(0, maxRequests - count), regardless of how many requests arrive.
	properties.Property("remaining never negative", prop.ForAll(
		func(maxRequests, total int) bool {
			store := NewCounterStore()
			limiter := NewLimiter(store, Policy{
				Window:      time.Minute,
				MaxRequests: maxRequests,
				Message:     "too many",
			})

			for i := 1; i <= total; i++ {
				decision := limiter.Check(userRequest("p"))
				if decision.Remaining < 0 {
					return false
				}
				want := maxRequests - i
				if want < 0 {
					want = 0
				}
				if decision.Remaining != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 120),
	))

	// Property 2: exactly maxRequests requests are admitted per window.
	properties.Property("admits exactly maxRequests", prop.ForAll(
		func(maxRequests, extra int) bool {
			store := NewCounterStore()
			limiter := NewLimiter(store, Policy{
				Window:      time.Minute,
				MaxRequests: maxRequests,
				Message:     "too many",
			})

			admitted := 0
			for range maxRequests + extra {
				if limiter.Check(userRequest("p")).Allowed {
					admitted++
				}
			}
			return admitted == maxRequests
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	// Property 3: distinct keys never affect each other's budget.
	properties.Property("keys are isolated", prop.ForAll(
		func(maxRequests, drain int) bool {
			store := NewCounterStore()
			limiter := NewLimiter(store, Policy{
				Window:      time.Minute,
				MaxRequests: maxRequests,
				Message:     "too many",
			})

			// Exhaust one key's budget and then some.
			for range maxRequests + drain {
				limiter.Check(userRequest("noisy"))
			}

			// A different key still gets its full budget.
			decision := limiter.Check(userRequest("quiet"))
			return decision.Allowed && decision.Remaining == maxRequests-1
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
