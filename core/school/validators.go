package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/stats"
)

const kpiFieldText = "unknown KPI field"

// Validations are the request tags of the school records, registered with core.InitValidators.
var Validations = []core.Validation{
	{Tag: "scorefield", Text: "unknown score field", Func: scoreFieldValidation},
	{Tag: "kpifield", Text: kpiFieldText, Func: kpiFieldValidation},
	{Tag: "pricecolumn", Text: "must be one of price1, price2 or price3", Func: priceColumnValidation},
	{Tag: "discounttype", Text: "must be one of flat or percent", Func: discountTypeValidation},
}

// ParseKPIField maps a field tag to its KPIField, rejecting unknown tags.
func ParseKPIField(tag string) (KPIField, error) {
	for _, f := range KPIFields {
		if string(f) == tag {
			return f, nil
		}
	}
	return "", core.NewValidationError(nil, core.FieldError{Field: "field", Error: kpiFieldText + ": " + tag})
}

func scoreFieldValidation(fl validator.FieldLevel) bool {
	_, err := stats.ParseField(fl.Field().String())
	return err == nil
}

func kpiFieldValidation(fl validator.FieldLevel) bool {
	_, err := ParseKPIField(fl.Field().String())
	return err == nil
}

// priceColumnValidation allows empty columns, which mean price1.
func priceColumnValidation(fl validator.FieldLevel) bool {
	switch PriceColumn(fl.Field().String()) {
	case "", Price1, Price2, Price3:
		return true
	}
	return false
}

// discountTypeValidation allows empty types, which mean flat.
func discountTypeValidation(fl validator.FieldLevel) bool {
	switch DiscountType(fl.Field().String()) {
	case "", DiscountFlat, DiscountPercent:
		return true
	}
	return false
}
