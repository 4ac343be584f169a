package env

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/hupe1980/negomesh/core"
)

// Random price talk never breaks the episode invariants: rounds advance by
// exactly one per successful step, the ask never rises, and the episode
// terminates within the round budget.
func TestSinglePairInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxRounds := rapid.IntRange(1, 12).Draw(t, "maxRounds")
		buyerMax := rapid.Float64Range(50, 200).Draw(t, "buyerMax")
		sellerMin := rapid.Float64Range(0, 50).Draw(t, "sellerMin")

		e, err := NewSinglePair(buyerMax, sellerMin, func(o *Options) {
			o.Config.MaxRounds = maxRounds
		})
		if err != nil {
			t.Fatalf("construct: %v", err)
		}

		obs, _, err := e.Reset(core.ResetOptions{Products: []core.Product{laptop()}})
		if err != nil {
			t.Fatalf("reset: %v", err)
		}

		lastAsk := obs.SellerPrice
		steps := 0
		for {
			buyerText := fmt.Sprintf("I can offer $%.2f.", rapid.Float64Range(1, 300).Draw(t, "offer"))
			sellerText := fmt.Sprintf("I can do $%.2f.", rapid.Float64Range(1, 300).Draw(t, "ask"))

			res, err := e.Step(core.Actions{
				{Role: core.RoleBuyer, Participant: 0, Content: buyerText},
				{Role: core.RoleSeller, Participant: 0, Content: sellerText},
			})
			if err != nil {
				t.Fatalf("step %d: %v", steps, err)
			}
			steps++

			if res.Observation.CurrentRound != steps {
				t.Fatalf("round %d after %d steps", res.Observation.CurrentRound, steps)
			}
			if res.Observation.SellerPrice > lastAsk {
				t.Fatalf("ask rose from %v to %v", lastAsk, res.Observation.SellerPrice)
			}
			lastAsk = res.Observation.SellerPrice

			if res.Terminated || res.Truncated {
				if res.Terminated && res.Truncated {
					t.Fatalf("terminated and truncated both set")
				}
				break
			}
			if steps > maxRounds {
				t.Fatalf("episode still ongoing after %d steps with budget %d", steps, maxRounds)
			}
		}
		if steps > maxRounds {
			t.Fatalf("took %d steps with budget %d", steps, maxRounds)
		}
	})
}
