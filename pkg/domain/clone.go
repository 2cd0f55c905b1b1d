package domain

import "slices"

// Clone returns a deep copy of the state. Decimals and times are immutable
// values, so copying slices and maps is sufficient.
func (s EnterpriseState) Clone() EnterpriseState {
	cp := s
	cp.ProductionLineLimits = cloneMap(s.ProductionLineLimits)
	cp.Production = s.Production.clone()
	cp.Logistics = Logistics{
		RawMaterials:      slices.Clone(s.Logistics.RawMaterials),
		FinishedProducts:  slices.Clone(s.Logistics.FinishedProducts),
		RawMaterialOrders: slices.Clone(s.Logistics.RawMaterialOrders),
	}
	cp.Marketing = s.Marketing.clone()
	cp.Operation = s.Operation.clone()
	return cp
}

func (p Production) clone() Production {
	cp := Production{ProductRD: cloneMap(p.ProductRD)}
	if p.Factories != nil {
		cp.Factories = make([]Factory, len(p.Factories))
		for i, f := range p.Factories {
			f.ProductionLines = slices.Clone(f.ProductionLines)
			cp.Factories[i] = f
		}
	}
	return cp
}

func (m Marketing) clone() Marketing {
	cp := Marketing{
		Markets:           slices.Clone(m.Markets),
		ISOCertifications: slices.Clone(m.ISOCertifications),
		AvailableOrders:   slices.Clone(m.AvailableOrders),
		SelectedOrders:    slices.Clone(m.SelectedOrders),
	}
	if m.Advertisements != nil {
		cp.Advertisements = make([]Advertisement, len(m.Advertisements))
		for i, ad := range m.Advertisements {
			ad.Markets = slices.Clone(ad.Markets)
			ad.Products = slices.Clone(ad.Products)
			cp.Advertisements[i] = ad
		}
	}
	return cp
}

func (o Operation) clone() Operation {
	cp := o
	cp.OperationLogs = slices.Clone(o.OperationLogs)
	cp.FinancialLogs = slices.Clone(o.FinancialLogs)
	cp.CashFlowHistory = slices.Clone(o.CashFlowHistory)
	cp.AnnualPlan.MarketDevelopment = slices.Clone(o.AnnualPlan.MarketDevelopment)
	cp.AnnualPlan.ProductRD = slices.Clone(o.AnnualPlan.ProductRD)
	return cp
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
