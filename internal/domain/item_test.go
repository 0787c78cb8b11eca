package domain_test

import (
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

func TestCreateItemValidate(t *testing.T) {
	cases := []struct {
		name    string
		cmd     domain.CreateItem
		wantErr bool
	}{
		{name: "name only", cmd: domain.CreateItem{Name: "Widget"}},
		{name: "with description", cmd: domain.CreateItem{Name: "Widget", Description: domain.StringPtr("blue")}},
		{name: "empty name", cmd: domain.CreateItem{Name: ""}, wantErr: true},
		{name: "blank name", cmd: domain.CreateItem{Name: "   \t"}, wantErr: true},
		{name: "too long", cmd: domain.CreateItem{Name: strings.Repeat("x", domain.MaxNameLength+1)}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.wantErr {
				if !domain.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestItemPatchValidate(t *testing.T) {
	cases := []struct {
		name    string
		patch   domain.ItemPatch
		wantErr bool
	}{
		{name: "empty patch", patch: domain.ItemPatch{}},
		{name: "rename", patch: domain.ItemPatch{Name: domain.StringPtr("Gadget")}},
		{name: "clear description", patch: domain.ItemPatch{ClearDescription: true}},
		{name: "explicit empty name", patch: domain.ItemPatch{Name: domain.StringPtr("")}, wantErr: true},
		{
			name:    "set and clear description",
			patch:   domain.ItemPatch{Description: domain.StringPtr("x"), ClearDescription: true},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestItemPatchApplyPreservesOmittedFields(t *testing.T) {
	item := domain.Item{ID: 3, Name: "Widget", Description: domain.StringPtr("blue")}

	renamed := domain.ItemPatch{Name: domain.StringPtr("Gadget")}.Apply(item)
	if renamed.Name != "Gadget" || renamed.Description == nil || *renamed.Description != "blue" {
		t.Fatalf("unexpected item after rename: %+v", renamed)
	}

	cleared := domain.ItemPatch{ClearDescription: true}.Apply(item)
	if cleared.Name != "Widget" || cleared.Description != nil {
		t.Fatalf("unexpected item after clear: %+v", cleared)
	}

	if item.Description == nil || *item.Description != "blue" {
		t.Fatal("Apply must not mutate the source item")
	}
}

func TestPageValidate(t *testing.T) {
	if err := (domain.Page{}).Validate(); err != nil {
		t.Fatalf("zero page must be valid: %v", err)
	}
	if err := (domain.Page{Offset: -1}).Validate(); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative offset, got %v", err)
	}
	if err := (domain.Page{Limit: -5}).Validate(); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative limit, got %v", err)
	}
}
