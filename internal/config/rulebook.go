package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"erpsim/pkg/domain"
)

// rulebookFile is the YAML overlay. Absent fields keep their default value.
type rulebookFile struct {
	Lines                 map[domain.LineType]lineOverlay                    `yaml:"lines"`
	LineLimit             *int                                               `yaml:"line_limit"`
	BillOfMaterials       map[domain.ProductCode]map[domain.MaterialCode]int `yaml:"bill_of_materials"`
	Markets               map[domain.MarketType]developmentOverlay           `yaml:"markets"`
	ISO                   map[domain.ISOType]developmentOverlay              `yaml:"iso"`
	RDQuarters            *int                                               `yaml:"rd_quarters"`
	LoanIncrement         *float64                                           `yaml:"loan_increment"`
	LongTermLoanQuarters  []int                                              `yaml:"long_term_loan_quarters"`
	ShortTermLoanQuarters []int                                              `yaml:"short_term_loan_quarters"`
	AdminFee              *float64                                           `yaml:"admin_fee"`
	AdminFeeQuarter       *int                                               `yaml:"admin_fee_quarter"`
	TaxRate               *float64                                           `yaml:"tax_rate"`
	FinalYear             *int                                               `yaml:"final_year"`
}

type lineOverlay struct {
	Name               *string  `yaml:"name"`
	PurchasePrice      *float64 `yaml:"purchase_price"`
	InstallationPeriod *int     `yaml:"installation_period"`
	ProductionPeriod   *int     `yaml:"production_period"`
	ConversionPeriod   *int     `yaml:"conversion_period"`
	ConversionCost     *float64 `yaml:"conversion_cost"`
	MaintenanceCost    *float64 `yaml:"maintenance_cost"`
	SalvageValue       *float64 `yaml:"salvage_value"`
	Life               *int     `yaml:"life"`
}

type developmentOverlay struct {
	Cost     *float64 `yaml:"cost"`
	Quarters *int     `yaml:"quarters"`
}

// LoadRulebook returns the default rulebook, overlaid with the YAML file at
// path when path is not empty.
func LoadRulebook(path string) (domain.Rulebook, error) {
	if path == "" {
		return domain.DefaultRulebook(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return domain.Rulebook{}, fmt.Errorf("read rulebook: %w", err)
	}
	rb, err := ParseRulebook(data)
	if err != nil {
		return domain.Rulebook{}, fmt.Errorf("rulebook %s: %w", path, err)
	}
	return rb, nil
}

// ParseRulebook applies a YAML overlay to the default rulebook.
func ParseRulebook(data []byte) (domain.Rulebook, error) {
	var file rulebookFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return domain.Rulebook{}, fmt.Errorf("decode: %w", err)
	}
	rb := domain.DefaultRulebook()
	if err := file.apply(&rb); err != nil {
		return domain.Rulebook{}, err
	}
	if err := validateRulebook(rb); err != nil {
		return domain.Rulebook{}, err
	}
	return rb, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setMoney(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

func (f rulebookFile) apply(rb *domain.Rulebook) error {
	for t, o := range f.Lines {
		spec, ok := rb.Lines[t]
		if !ok {
			return fmt.Errorf("unknown line type %q", t)
		}
		if o.Name != nil {
			spec.Name = *o.Name
		}
		setMoney(&spec.PurchasePrice, o.PurchasePrice)
		setInt(&spec.InstallationPeriod, o.InstallationPeriod)
		setInt(&spec.ProductionPeriod, o.ProductionPeriod)
		setInt(&spec.ConversionPeriod, o.ConversionPeriod)
		setMoney(&spec.ConversionCost, o.ConversionCost)
		setMoney(&spec.MaintenanceCost, o.MaintenanceCost)
		setMoney(&spec.SalvageValue, o.SalvageValue)
		setInt(&spec.Life, o.Life)
		rb.Lines[t] = spec
	}
	setInt(&rb.LineLimit, f.LineLimit)
	for p, materials := range f.BillOfMaterials {
		if !p.Valid() {
			return fmt.Errorf("unknown product %q", p)
		}
		var bom []domain.MaterialRequirement
		for _, m := range domain.MaterialCodes {
			if qty, ok := materials[m]; ok {
				bom = append(bom, domain.MaterialRequirement{Material: m, Quantity: qty})
			}
		}
		if len(bom) != len(materials) {
			return fmt.Errorf("bill of materials for %s names an unknown material", p)
		}
		rb.BillOfMaterials[p] = bom
	}
	for m, o := range f.Markets {
		spec, ok := rb.Markets[m]
		if !ok {
			return fmt.Errorf("unknown market %q", m)
		}
		setMoney(&spec.Cost, o.Cost)
		setInt(&spec.Quarters, o.Quarters)
		rb.Markets[m] = spec
	}
	for c, o := range f.ISO {
		spec, ok := rb.ISO[c]
		if !ok {
			return fmt.Errorf("unknown certification %q", c)
		}
		setMoney(&spec.Cost, o.Cost)
		setInt(&spec.Quarters, o.Quarters)
		rb.ISO[c] = spec
	}
	setInt(&rb.RDQuarters, f.RDQuarters)
	setMoney(&rb.LoanIncrement, f.LoanIncrement)
	if f.LongTermLoanQuarters != nil {
		rb.LongTermLoanQuarters = f.LongTermLoanQuarters
	}
	if f.ShortTermLoanQuarters != nil {
		rb.ShortTermLoanQuarters = f.ShortTermLoanQuarters
	}
	setMoney(&rb.AdminFee, f.AdminFee)
	setInt(&rb.AdminFeeQuarter, f.AdminFeeQuarter)
	setMoney(&rb.TaxRate, f.TaxRate)
	setInt(&rb.FinalYear, f.FinalYear)
	return nil
}

func validQuarter(q int) bool { return q >= 1 && q <= 4 }

func validateRulebook(rb domain.Rulebook) error {
	for t, spec := range rb.Lines {
		if spec.InstallationPeriod < 0 || spec.ProductionPeriod < 0 || spec.ConversionPeriod < 0 {
			return fmt.Errorf("line %s: periods must not be negative", t)
		}
		if spec.PurchasePrice.IsNegative() {
			return fmt.Errorf("line %s: purchase price must not be negative", t)
		}
	}
	for p, bom := range rb.BillOfMaterials {
		for _, req := range bom {
			if req.Quantity <= 0 {
				return fmt.Errorf("bill of materials for %s: %s quantity must be positive", p, req.Material)
			}
		}
	}
	if rb.LineLimit < 0 {
		return fmt.Errorf("line limit must not be negative")
	}
	if rb.RDQuarters < 1 {
		return fmt.Errorf("rd quarters must be at least 1")
	}
	if !rb.LoanIncrement.IsPositive() {
		return fmt.Errorf("loan increment must be positive")
	}
	for _, q := range append(append([]int{}, rb.LongTermLoanQuarters...), rb.ShortTermLoanQuarters...) {
		if !validQuarter(q) {
			return fmt.Errorf("loan quarter %d outside 1..4", q)
		}
	}
	if !validQuarter(rb.AdminFeeQuarter) {
		return fmt.Errorf("admin fee quarter %d outside 1..4", rb.AdminFeeQuarter)
	}
	if rb.TaxRate.IsNegative() || rb.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate %s outside 0..1", rb.TaxRate)
	}
	if rb.FinalYear < 1 {
		return fmt.Errorf("final year must be at least 1")
	}
	return nil
}
