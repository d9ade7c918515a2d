package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderPreparing, true},
		{OrderPreparing, OrderReady, true},
		{OrderReady, OrderCompleted, true},
		{OrderPending, OrderCancelled, true},
		{OrderPreparing, OrderCancelled, true},
		{OrderReady, OrderCancelled, true},

		{OrderPending, OrderReady, false},
		{OrderPending, OrderCompleted, false},
		{OrderPreparing, OrderCompleted, false},
		{OrderReady, OrderPreparing, false},
		{OrderCompleted, OrderPreparing, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderCancelled, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSelectionsSignature(t *testing.T) {
	a := Selections{"size": "large", "extra": true}
	b := Selections{"extra": true, "size": "large"}
	if a.Signature() != b.Signature() {
		t.Errorf("equal selections produced different signatures:\n%s\n%s", a.Signature(), b.Signature())
	}

	c := Selections{"size": "medium", "extra": true}
	if a.Signature() == c.Signature() {
		t.Errorf("different selections share signature %s", a.Signature())
	}

	if got := Selections(nil).Signature(); got != "{}" {
		t.Errorf("empty signature = %q, want {}", got)
	}
	if got := (Selections{}).Signature(); got != "{}" {
		t.Errorf("empty map signature = %q, want {}", got)
	}

	// Signatures are valid JSON objects.
	var decoded map[string]any
	if err := json.Unmarshal([]byte(a.Signature()), &decoded); err != nil {
		t.Fatalf("signature is not valid JSON: %v", err)
	}
	if decoded["size"] != "large" || decoded["extra"] != true {
		t.Errorf("signature round-trip = %v", decoded)
	}
}

func TestOptionsUnmarshal(t *testing.T) {
	raw := `[
		{"type": "radio", "id": "size", "choices": [
			{"id": "medium", "name": "Medium", "price_cents": 0},
			{"id": "large", "name": "Large", "price_cents": 1500}
		]},
		{"type": "checkbox", "id": "extra", "name": "Extra cheese", "price_cents": 1000}
	]`
	var opts Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("decoded %d options, want 2", len(opts))
	}

	radio, ok := opts[0].(RadioOption)
	if !ok {
		t.Fatalf("opts[0] is %T, want RadioOption", opts[0])
	}
	if radio.ID != "size" || len(radio.Choices) != 2 || radio.Choices[1].PriceCents != 1500 {
		t.Errorf("radio = %+v", radio)
	}

	box, ok := opts[1].(CheckboxOption)
	if !ok {
		t.Fatalf("opts[1] is %T, want CheckboxOption", opts[1])
	}
	if box.ID != "extra" || box.PriceCents != 1000 {
		t.Errorf("checkbox = %+v", box)
	}
}

func TestOptionsUnmarshalUnknownType(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`[{"type": "slider", "id": "spice"}]`), &opts)
	if err == nil {
		t.Fatal("unknown option type decoded without error")
	}
	if !strings.Contains(err.Error(), "slider") {
		t.Errorf("error %q does not name the offending type", err)
	}
}
