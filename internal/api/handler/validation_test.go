package handler

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestMustRegister_RouteTag(t *testing.T) {
	v := validator.New()
	mustRegister(v, "route_tag", validRouteTag)

	if err := v.Var("cross_border", "route_tag"); err != nil {
		t.Errorf("expected cross_border to be valid, got %v", err)
	}
	if err := v.Var("moon", "route_tag"); err == nil {
		t.Error("expected unknown route to fail validation")
	}
}

func TestMustRegister_PanicsOnInvalidTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when registration fails")
		}
	}()
	mustRegister(validator.New(), "", validRouteTag)
}
