package catalog

import (
	"context"
	"encoding/json"

	"github.com/tailored-agentic-units/flora/florist"
	"github.com/tailored-agentic-units/flora/memory"
	"github.com/tailored-agentic-units/flora/observability"
	"github.com/tailored-agentic-units/flora/order"
	"github.com/tailored-agentic-units/flora/pii"
	"github.com/tailored-agentic-units/flora/tools"
)

// OrderCreator places orders. *order.Service satisfies it.
type OrderCreator interface {
	Create(ctx context.Context, req order.Request) (order.Confirmation, error)
}

// Recommender answers flower questions. *knowledge.Recommender satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, query string) (string, error)
}

// Redactor analyzes text for PII. *pii.Redactor satisfies it.
type Redactor interface {
	Redact(ctx context.Context, text string) (pii.RedactionResult, error)
}

// Deps are the domain services behind the catalogue.
type Deps struct {
	Directory   florist.Directory
	Orders      OrderCreator
	Recommender Recommender
	Redactor    Redactor
	Observer    observability.Observer
}

func (d Deps) handlers() map[Name]tools.Handler {
	observer := d.Observer
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	h := make(map[Name]tools.Handler)
	if d.Directory != nil {
		h[FindBestFlorist] = findFlorist(d.Directory)
	}
	if d.Orders != nil {
		h[CreateFlowerOrder] = createOrder(d.Orders)
	}
	if d.Recommender != nil {
		h[GetFlowerRecommendations] = recommend(d.Recommender)
	}
	if d.Redactor != nil {
		h[RedactPIIAndGetAddress] = redact(d.Redactor, observer)
	}
	return h
}

func findFlorist(dir florist.Directory) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		args, err := decode[FindFloristArgs](raw)
		if err != nil {
			return tools.Result{}, err
		}
		res, err := dir.Find(ctx, florist.Query{
			Address:    args.Address,
			FlowerType: args.FlowerType,
			Quantity:   args.Quantity,
		})
		if err != nil {
			return tools.Result{}, err
		}
		return jsonResult(res, res.Status != florist.StatusSuccess)
	}
}

func createOrder(orders OrderCreator) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		args, err := decode[CreateOrderArgs](raw)
		if err != nil {
			return tools.Result{}, err
		}
		conf, err := orders.Create(ctx, order.Request{
			FloristID:  args.FloristID,
			Address:    args.Address,
			FlowerType: args.FlowerType,
			Quantity:   args.Quantity,
			Note:       args.Note,
		})
		if err != nil {
			return tools.Result{}, err
		}
		return jsonResult(conf, conf.Status != order.StatusConfirmed)
	}
}

func recommend(r Recommender) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		args, err := decode[RecommendArgs](raw)
		if err != nil {
			return tools.Result{}, err
		}
		answer, err := r.Recommend(ctx, args.UserQuery)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.Result{Content: answer}, nil
	}
}

// redact extracts the delivery address and binds it to the session's
// facts when the run carries them. Only the anonymized text is logged.
func redact(r Redactor, observer observability.Observer) tools.Handler {
	return func(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
		args, err := decode[RedactArgs](raw)
		if err != nil {
			return tools.Result{}, err
		}
		result, err := r.Redact(ctx, args.TextWithAddress)
		if err != nil {
			return tools.Result{}, err
		}

		entities := make([]string, 0, len(result.Spans))
		for _, s := range result.Spans {
			entities = append(entities, s.EntityType)
		}
		observer.OnEvent(ctx, observability.NewEvent(EventRedacted, observability.LevelVerbose, "catalog",
			map[string]any{"anonymized": result.Anonymized, "entities": entities}))

		address, ok := pii.ExtractAddress(result)
		if !ok {
			return tools.Result{Content: pii.NoAddressMessage}, nil
		}
		facts, ok := memory.FactsFrom(ctx)
		if !ok {
			return tools.Result{Content: pii.ExtractedMessage(address)}, nil
		}
		facts.Set(memory.FactAddress, address)
		return tools.Result{Content: pii.AddressMessage(address)}, nil
	}
}

// EventRedacted is emitted after PII analysis with the anonymized text.
const EventRedacted observability.EventType = "catalog.pii.redacted"
