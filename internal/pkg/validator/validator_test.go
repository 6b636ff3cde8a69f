package validator

import "testing"

type sample struct {
	InstanceID string `json:"instance-id" validate:"required"`
	State      string `json:"state" validate:"omitempty,oneof=pending running"`
}

func TestValidate(t *testing.T) {
	if errs := Validate(&sample{InstanceID: "i-1", State: "running"}); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	errs := Validate(&sample{State: "exploding"})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Field != "instance-id" || errs[0].Tag != "required" {
		t.Errorf("expected json field name in error, got %+v", errs[0])
	}
	if Summary(errs) == "" {
		t.Error("expected a summary")
	}
}
