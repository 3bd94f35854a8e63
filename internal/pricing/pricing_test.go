package pricing

import (
	"testing"

	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

func TestCeilingFor(t *testing.T) {
	cases := []struct {
		floor int
		want  int
	}{
		{100, 250},
		{101, 253}, // 252.5 rounds up
		{40, 100},
		{1, 3},
	}
	for _, tc := range cases {
		if got := CeilingFor(tc.floor); got != tc.want {
			t.Errorf("CeilingFor(%d) = %d, want %d", tc.floor, got, tc.want)
		}
	}
}

func TestComputePrice_Cleaning(t *testing.T) {
	calc := NewCalculator()

	quote, err := calc.ComputePrice(Params{
		ServiceType: enums.ServiceTypeCleaning,
		Cleaning: &CleaningParams{
			SurfaceM2: 50,
			CleanType: enums.CleanTypeStandard,
			TeamType:  enums.TeamTypeSolo,
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if quote.FloorPrice != 120 {
		t.Fatalf("expected floor 120, got %d", quote.FloorPrice)
	}
	if quote.Ceiling != CeilingFor(quote.FloorPrice) {
		t.Fatalf("ceiling must track the floor, got %d", quote.Ceiling)
	}
	if quote.Duration.MinMinutes != 100 || quote.Duration.MaxMinutes != 150 {
		t.Fatalf("unexpected duration %+v", quote.Duration)
	}

	deep, err := calc.ComputePrice(Params{
		ServiceType: enums.ServiceTypeCleaning,
		Cleaning: &CleaningParams{
			SurfaceM2: 50,
			CleanType: enums.CleanTypeDeep,
			TeamType:  enums.TeamTypeCrew,
		},
	})
	if err != nil {
		t.Fatalf("compute deep: %v", err)
	}
	if deep.FloorPrice <= quote.FloorPrice {
		t.Fatalf("deep crew clean should cost more than standard solo (%d vs %d)", deep.FloorPrice, quote.FloorPrice)
	}
}

func TestComputePrice_CookingAndChildcare(t *testing.T) {
	calc := NewCalculator()

	cooking, err := calc.ComputePrice(Params{
		ServiceType: enums.ServiceTypeCooking,
		Cooking:     &CookingParams{Guests: 6},
	})
	if err != nil {
		t.Fatalf("cooking: %v", err)
	}
	if cooking.FloorPrice != 78 {
		t.Fatalf("expected cooking floor 78, got %d", cooking.FloorPrice)
	}

	childcare, err := calc.ComputePrice(Params{
		ServiceType: enums.ServiceTypeChildcare,
		Childcare:   &ChildcareParams{Children: 2, Hours: 4},
	})
	if err != nil {
		t.Fatalf("childcare: %v", err)
	}
	if childcare.FloorPrice != 80 {
		t.Fatalf("expected childcare floor 80, got %d", childcare.FloorPrice)
	}
	if childcare.Duration.MinMinutes != 240 {
		t.Fatalf("expected 240 minutes, got %d", childcare.Duration.MinMinutes)
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	calc := NewCalculator()
	params := Params{
		ServiceType: enums.ServiceTypeCooking,
		Cooking:     &CookingParams{Guests: 10},
	}
	first, err := calc.ComputePrice(params)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := calc.ComputePrice(params)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("oracle must be deterministic: %+v vs %+v", first, second)
	}
}

func TestComputePrice_Validation(t *testing.T) {
	calc := NewCalculator()

	cases := []Params{
		{ServiceType: "plumbing"},
		{ServiceType: enums.ServiceTypeCleaning},
		{ServiceType: enums.ServiceTypeCleaning, Cleaning: &CleaningParams{SurfaceM2: 0, CleanType: enums.CleanTypeStandard, TeamType: enums.TeamTypeSolo}},
		{ServiceType: enums.ServiceTypeCooking, Cooking: &CookingParams{Guests: -1}},
		{ServiceType: enums.ServiceTypeChildcare, Childcare: &ChildcareParams{Children: 1, Hours: 0}},
	}
	for i, params := range cases {
		_, err := calc.ComputePrice(params)
		if err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation code, got %v", i, err)
		}
	}
}
