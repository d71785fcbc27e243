package model

import "testing"

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderInProduction, true},
		{OrderConfirmed, OrderPending, false},
		{OrderProcessing, OrderCancelled, true},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderReady, OrderReady, false},
		{OrderPending, OrderStatus("shipped"), false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Errorf("CanTransitionTo = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrder_Delivery(t *testing.T) {
	o := Order{DeliveryInfo: []byte(`{"customer_name":"Asha","city":"Pune"}`)}
	d, err := o.Delivery()
	if err != nil {
		t.Fatalf("Delivery: %v", err)
	}
	if d.CustomerName != "Asha" || d.City != "Pune" {
		t.Errorf("unexpected delivery info %+v", d)
	}

	empty, err := Order{}.Delivery()
	if err != nil || empty.CustomerName != "" {
		t.Errorf("empty blob should decode to zero value, got %+v, %v", empty, err)
	}

	if _, err := (Order{DeliveryInfo: []byte("not json")}).Delivery(); err == nil {
		t.Error("expected error for malformed blob")
	}
}
