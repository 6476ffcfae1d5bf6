package graphql

import (
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/softwool/scarf-orders/internal/domain/order"
)

// resolver holds the service dependency shared by all field resolvers.
type resolver struct {
	svc *order.Service
}

// parseID validates a string-encoded order id before any store access.
func parseID(p graphql.ResolveParams) (string, error) {
	raw, _ := p.Args["id"].(string)
	if _, err := uuid.Parse(raw); err != nil {
		return "", mapError(order.ErrInvalidID)
	}
	return raw, nil
}

func stringArg(p graphql.ResolveParams, name string) string {
	if v, ok := p.Args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(p graphql.ResolveParams, name string) int {
	if v, ok := p.Args[name].(int); ok {
		return v
	}
	return 0
}

func (r *resolver) orders(p graphql.ResolveParams) (interface{}, error) {
	list, err := r.svc.Orders(p.Context)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]*order.Order, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (r *resolver) order(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Order(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}

func (r *resolver) calculatePostage(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	options, err := r.svc.CalculatePostage(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return options, nil
}

func (r *resolver) orderPrice(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	cents, err := r.svc.BasePriceCents(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return float64(cents) / 100, nil
}

func (r *resolver) paymentAmount(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	cents, err := r.svc.PaymentAmountCents(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return float64(cents) / 100, nil
}

func (r *resolver) paymentClientSecret(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	secret, err := r.svc.PaymentClientSecret(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	if secret == "" {
		return nil, nil
	}
	return secret, nil
}

func (r *resolver) orderFulfillmentMethod(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.Order(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return string(o.Method), nil
}

func (r *resolver) createOrder(p graphql.ResolveParams) (interface{}, error) {
	method, _ := p.Args["deliveryMethod"].(order.FulfillmentMethod)

	// Omitted optional address fields arrive as zero values and are stored
	// that way for Post orders.
	addr := &order.Address{
		Apartment: stringArg(p, "addressApartment"),
		Street:    stringArg(p, "addressStreet"),
		Town:      stringArg(p, "addressTown"),
		State:     stringArg(p, "addressState"),
		Postcode:  intArg(p, "addressPostCode"),
	}

	o, err := r.svc.CreateOrder(p.Context, order.CreateOrderRequest{
		Name:     stringArg(p, "name"),
		Email:    stringArg(p, "email"),
		Quantity: intArg(p, "quantity"),
		Method:   method,
		Address:  addr,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}

func (r *resolver) selectPostage(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.SelectPostage(p.Context, id, stringArg(p, "code"))
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}

func (r *resolver) reconcilePayment(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p)
	if err != nil {
		return nil, err
	}
	o, err := r.svc.ReconcilePayment(p.Context, id)
	if err != nil {
		return nil, mapError(err)
	}
	return o, nil
}
