package core

import (
	"fmt"
	"strings"

	"erpsim/pkg/domain"
)

// bomSatisfiable reports whether stock covers one unit of the bill of
// materials. An empty bill (no product assigned) is never satisfiable.
func bomSatisfiable(state *domain.EnterpriseState, bom []domain.MaterialRequirement) bool {
	if len(bom) == 0 {
		return false
	}
	for _, req := range bom {
		m, ok := state.RawMaterial(req.Material)
		if !ok || m.Quantity < req.Quantity {
			return false
		}
	}
	return true
}

// bomExhausted reports whether every material of the bill is out of stock.
func bomExhausted(state *domain.EnterpriseState, bom []domain.MaterialRequirement) bool {
	if len(bom) == 0 {
		return false
	}
	for _, req := range bom {
		if m, ok := state.RawMaterial(req.Material); ok && m.Quantity > 0 {
			return false
		}
	}
	return true
}

func consumeBOM(state *domain.EnterpriseState, bom []domain.MaterialRequirement) {
	for _, req := range bom {
		if m, ok := state.RawMaterial(req.Material); ok {
			m.Quantity -= req.Quantity
		}
	}
}

func describeBOM(bom []domain.MaterialRequirement) string {
	parts := make([]string, 0, len(bom))
	for _, req := range bom {
		parts = append(parts, fmt.Sprintf("%d%s", req.Quantity, req.Material))
	}
	return strings.Join(parts, "+")
}

func bomMaterials(bom []domain.MaterialRequirement) string {
	parts := make([]string, 0, len(bom))
	for _, req := range bom {
		parts = append(parts, string(req.Material))
	}
	return strings.Join(parts, ", ")
}

func productLabel(p domain.ProductCode) string {
	if p == domain.ProductNone {
		return "no product"
	}
	return string(p)
}
