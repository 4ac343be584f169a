package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/negomesh/core"
	"github.com/hupe1980/negomesh/model"
)

// ModelResponder drives one negotiation side with an LLM. It renders the
// conversation history into a chat request (own turns as assistant, the
// counterpart's as user) with role instructions derived from the observation
// and the configured price bound.
type ModelResponder struct {
	model       model.Model
	role        core.Role
	participant int
	limit       float64 // buyer max or seller min, depending on role
	persona     string
	historySize int
}

var _ core.Responder = (*ModelResponder)(nil)

// ModelResponderOptions configures a ModelResponder.
type ModelResponderOptions struct {
	// Participant is the id this responder negotiates as.
	Participant int
	// Persona is optional free-form style guidance appended to the
	// instructions.
	Persona string
	// HistorySize bounds how many trailing turns are sent to the model.
	HistorySize int
}

// NewModelResponder constructs an LLM-backed responder for the given role.
// The limit is the buyer's maximum or the seller's minimum price.
func NewModelResponder(m model.Model, role core.Role, limit float64, optFns ...func(o *ModelResponderOptions)) (*ModelResponder, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model must not be nil", core.ErrInvalidArgument)
	}
	if role != core.RoleBuyer && role != core.RoleSeller {
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrInvalidArgument, role)
	}

	opts := ModelResponderOptions{HistorySize: 20}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelResponder{
		model:       m,
		role:        role,
		participant: opts.Participant,
		limit:       limit,
		persona:     opts.Persona,
		historySize: opts.HistorySize,
	}, nil
}

// Respond implements core.Responder.
func (r *ModelResponder) Respond(ctx context.Context, history []core.Turn, obs core.Observation) (string, error) {
	req := model.Request{
		Instructions: r.instructions(obs),
		Messages:     r.messages(history),
	}
	resp, err := r.model.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("model responder: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (r *ModelResponder) instructions(obs core.Observation) string {
	var sb strings.Builder
	if r.role == core.RoleBuyer {
		fmt.Fprintf(&sb, "You are a buyer negotiating a purchase. Never pay more than $%.2f.", r.limit)
	} else {
		fmt.Fprintf(&sb, "You are a seller negotiating a sale. Never accept less than $%.2f.", r.limit)
	}
	for _, p := range obs.Products {
		fmt.Fprintf(&sb, "\nProduct: %s (list price $%.2f).", p.Name, p.ListPrice)
		if len(p.Features) > 0 {
			fmt.Fprintf(&sb, " Features: %s.", strings.Join(p.Features, ", "))
		}
	}
	fmt.Fprintf(&sb, "\nCurrent round: %d. Seller's asking price: $%.2f.", obs.CurrentRound, obs.SellerPrice)
	if obs.BuyerOffer != nil {
		fmt.Fprintf(&sb, " Buyer's last offer: $%.2f.", *obs.BuyerOffer)
	}
	if req, ok := obs.EnvironmentInfo["user_requirement"].(string); ok && req != "" {
		fmt.Fprintf(&sb, "\nRequirement: %s", req)
	}
	sb.WriteString("\nAlways state exactly one concrete price in your reply. Say \"no deal\" only to walk away for good.")
	if r.persona != "" {
		sb.WriteString("\n")
		sb.WriteString(r.persona)
	}
	return sb.String()
}

// messages maps the trailing conversation into chat turns, own side as
// assistant and the counterpart as user.
func (r *ModelResponder) messages(history []core.Turn) []model.Message {
	start := 0
	if r.historySize > 0 && len(history) > r.historySize {
		start = len(history) - r.historySize
	}

	var msgs []model.Message
	for _, t := range history[start:] {
		role := "user"
		if t.Role == r.role && t.Participant == r.participant {
			role = "assistant"
		}
		msgs = append(msgs, model.Message{Role: role, Text: t.Content})
	}
	if len(msgs) == 0 {
		msgs = append(msgs, model.Message{Role: "user", Text: "The negotiation begins. Make your opening statement."})
	}
	return msgs
}
