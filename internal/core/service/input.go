package service

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-service/internal/core/domain"
)

const (
	msgUserIDRequired      = "The user id field is required."
	msgUserIDInteger       = "The user id field must be an integer."
	msgProductListRequired = "The product list field is required."
	msgProductListArray    = "The product list field must be an array."
	msgTotalRequired       = "The total amount field is required."
	msgTotalNumeric        = "The total amount field must be a number."
	msgTotalScale          = "The total amount field must have 0-2 decimal places."
	msgTotalRange          = "The total amount field must be less than 10000000000."
	msgStatusRequired      = "The status field is required."
	msgStatusInvalid       = "The selected status is invalid."
)

// createOrderFields is the request after loose scalars have been rendered to
// text. Amount bounds follow the DECIMAL(12,2) column.
type createOrderFields struct {
	UserID      string          `json:"user_id" validate:"required,int64"`
	ProductList json.RawMessage `json:"product_list" validate:"required,json_array"`
	TotalAmount string          `json:"total_amount" validate:"required,numeric,max_scale=2,max_int_digits=10"`
}

type updateStatusFields struct {
	Status string `json:"status" validate:"required,oneof=Processing Shipped Completed Cancelled"`
}

var fieldMessages = map[string]map[string]string{
	"user_id": {
		"required": msgUserIDRequired,
		"int64":    msgUserIDInteger,
	},
	"product_list": {
		"required":   msgProductListRequired,
		"json_array": msgProductListArray,
	},
	"total_amount": {
		"required":       msgTotalRequired,
		"numeric":        msgTotalNumeric,
		"max_scale":      msgTotalScale,
		"max_int_digits": msgTotalRange,
	},
	"status": {
		"required": msgStatusRequired,
		"oneof":    msgStatusInvalid,
	},
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("int64", func(fl validator.FieldLevel) bool {
		_, err := strconv.ParseInt(fl.Field().String(), 10, 64)
		return err == nil
	})
	_ = v.RegisterValidation("json_array", func(fl validator.FieldLevel) bool {
		var items []json.RawMessage
		return json.Unmarshal(fl.Field().Bytes(), &items) == nil && items != nil
	})
	_ = v.RegisterValidation("max_scale", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Truncate(int32(places)))
	})
	_ = v.RegisterValidation("max_int_digits", func(fl validator.FieldLevel) bool {
		digits, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Abs().LessThan(decimal.New(1, int32(digits)))
	})
	return v
}

// toValidationError maps validator failures onto the per-field messages.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := domain.NewValidationError()
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "The " + strings.ReplaceAll(fe.Field(), "_", " ") + " field is invalid."
		}
		verr.Add(fe.Field(), msg)
	}
	return verr
}

func newCreateOrderFields(in CreateOrderInput) createOrderFields {
	return createOrderFields{
		UserID:      scalarText(in.UserID),
		ProductList: productListJSON(in.ProductList),
		TotalAmount: scalarText(in.TotalAmount),
	}
}

// scalarText renders a decoded scalar as text for validation. Blank strings
// count as missing; anything non-scalar keeps its JSON form so it fails the
// format checks rather than being reported as missing.
func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return numberText(x.String())
	case decimal.Decimal:
		return x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return scalarText(float64(x))
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "invalid"
		}
		return string(b)
	}
}

// numberText expands exponent notation so 1e3 validates as 1000.
func numberText(s string) string {
	if !strings.ContainsAny(s, "eE") {
		return s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

// productListJSON re-encodes any value into the blob that is stored. Absent
// values, null and empty arrays come back nil. Items are kept as given.
func productListJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`"invalid"`)
	}
	if string(b) == "null" {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(b, &items) == nil && len(items) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
