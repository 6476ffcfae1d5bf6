// Package graphql exposes the order lifecycle as a GraphQL schema. The
// schema is built at runtime; resolvers delegate to the order service and
// translate domain errors into coded error extensions.
package graphql

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/softwool/scarf-orders/internal/domain/order"
	"github.com/softwool/scarf-orders/internal/domain/shipping"
)

// New builds the executable schema for the given order service.
func New(svc *order.Service) (graphql.Schema, error) {
	r := &resolver{svc: svc}

	methodEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:        "FulfillmentMethod",
		Description: "Whether the order is picked up or posted",
		Values: graphql.EnumValueConfigMap{
			"PICKUP": &graphql.EnumValueConfig{Value: order.MethodPickup},
			"POST":   &graphql.EnumValueConfig{Value: order.MethodPost},
		},
	})

	contactType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Contact",
		Description: "Contact details of the person making the purchase",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(order.Contact).Name, nil
				},
			},
			"email": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(order.Contact).Email, nil
				},
			},
		},
	})

	addressType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Address",
		Description: "Delivery address",
		Fields: graphql.Fields{
			"apartment": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Address).Apartment, nil
				},
			},
			"street": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Address).Street, nil
				},
			},
			"town": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Address).Town, nil
				},
			},
			"state": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Address).State, nil
				},
			},
			"postCode": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Address).Postcode, nil
				},
			},
		},
	})

	postageType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Postage",
		Description: "The delivery service the buyer selected, and the price quoted at selection time",
		Fields: graphql.Fields{
			"code": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Postage).Code, nil
				},
			},
			"price": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Postage).Price.InexactFloat64(), nil
				},
			},
		},
	})

	paymentType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Payment",
		Description: "The external payment transaction linked to the order",
		Fields: graphql.Fields{
			"intentId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.PaymentRef).IntentID, nil
				},
			},
			"clientSecret": &graphql.Field{
				Type:        graphql.String,
				Description: "Present only on the order returned right after creation; use paymentClientSecret for a live value",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s := p.Source.(*order.PaymentRef).ClientSecret; s != "" {
						return s, nil
					}
					return nil, nil
				},
			},
		},
	})

	orderType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Order",
		Description: "The root order, holding contact, address, postage and payment information",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Order).ID, nil
				},
			},
			"user": &graphql.Field{
				Type:        graphql.NewNonNull(contactType),
				Description: "Contact details",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Order).Contact, nil
				},
			},
			"quantity": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Quantity of scarves in the order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Order).Quantity, nil
				},
			},
			"method": &graphql.Field{
				Type: graphql.NewNonNull(methodEnum),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*order.Order).Method, nil
				},
			},
			"address": &graphql.Field{
				Type: addressType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if a := p.Source.(*order.Order).Address; a != nil {
						return a, nil
					}
					return nil, nil
				},
			},
			"postage": &graphql.Field{
				Type: postageType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if po := p.Source.(*order.Order).Postage; po != nil {
						return po, nil
					}
					return nil, nil
				},
			},
			"payment": &graphql.Field{
				Type: paymentType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pay := p.Source.(*order.Order).Payment; pay != nil {
						return pay, nil
					}
					return nil, nil
				},
			},
			"paymentSyncStatus": &graphql.Field{
				Type:        graphql.String,
				Description: "Whether the payment intent amount matches the recorded postage selection: pending, synced or failed",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s := p.Source.(*order.Order).PaymentSync; s != "" {
						return string(s), nil
					}
					return nil, nil
				},
			},
		},
	})

	deliveryOptionType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "PostDeliveryOption",
		Description: "A domestic parcel delivery option quoted by the carrier",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(shipping.DeliveryOption).Name, nil
				},
			},
			"code": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(shipping.DeliveryOption).Code, nil
				},
			},
			"price": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(shipping.DeliveryOption).Price.InexactFloat64(), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"orders": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(orderType))),
				Description: "All orders",
				Resolve:     r.orders,
			},
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.order,
			},
			"calculatePostage": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(deliveryOptionType))),
				Description: "The delivery options currently available for an order",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.calculatePostage,
			},
			"orderPrice": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "The order price excluding postage, in dollars. Display-only; the payment gateway holds the authoritative amount",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.orderPrice,
			},
			"paymentAmount": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Float),
				Description: "The authoritative order total in dollars, proxied live from the payment gateway",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.paymentAmount,
			},
			"paymentClientSecret": &graphql.Field{
				Type:        graphql.String,
				Description: "The current client secret for the order's payment intent",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.paymentClientSecret,
			},
			"orderFulfillmentMethod": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.orderFulfillmentMethod,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createOrder": &graphql.Field{
				Type:        orderType,
				Description: "Create an order from the buyer's details, fulfillment choice and optional address",
				Args: graphql.FieldConfigArgument{
					"name":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"quantity":         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"deliveryMethod":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(methodEnum)},
					"addressApartment": &graphql.ArgumentConfig{Type: graphql.String},
					"addressStreet":    &graphql.ArgumentConfig{Type: graphql.String},
					"addressTown":      &graphql.ArgumentConfig{Type: graphql.String},
					"addressState":     &graphql.ArgumentConfig{Type: graphql.String},
					"addressPostCode":  &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.createOrder,
			},
			"selectPostage": &graphql.Field{
				Type:        orderType,
				Description: "Select the delivery service for an order and reconcile the payment amount",
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"code": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.selectPostage,
			},
			"reconcilePayment": &graphql.Field{
				Type:        orderType,
				Description: "Retry a pending or failed payment-amount reconciliation",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.reconcilePayment,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// NewHandler builds the HTTP handler serving the schema, with GraphiQL
// enabled for interactive exploration.
func NewHandler(svc *order.Service) (http.Handler, error) {
	schema, err := New(svc)
	if err != nil {
		return nil, errors.Wrap(err, "build schema")
	}
	return handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	}), nil
}
