package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ValueKind is the dynamic type of a value returned by the extractor.
type ValueKind int

const (
	// ValueNull is an absent or JSON null value.
	ValueNull ValueKind = iota
	// ValueString is a JSON string.
	ValueString
	// ValueNumber is a JSON number; its literal text is kept in String.
	ValueNumber
	// ValueTime is a natively typed timestamp supplied by a Go caller.
	ValueTime
)

// RawValue holds an untrusted, loosely typed field as produced by the extractor.
// Strings and numbers are both kept as text so money parsing can see the original
// separators.
type RawValue struct {
	Time   time.Time
	String string
	Number float64
	Kind   ValueKind
}

// StringValue wraps s as a string value.
func StringValue(s string) RawValue {
	return RawValue{Kind: ValueString, String: s}
}

// NumberValue wraps f as a number value.
func NumberValue(f float64) RawValue {
	return RawValue{
		Kind:   ValueNumber,
		Number: f,
		String: strconv.FormatFloat(f, 'f', -1, 64),
	}
}

// TimeValue wraps t as a native timestamp.
func TimeValue(t time.Time) RawValue {
	return RawValue{Kind: ValueTime, Time: t}
}

// IsNull reports whether the value is absent.
func (v RawValue) IsNull() bool {
	return v.Kind == ValueNull
}

// Text returns the textual form of a string or number value, or "" otherwise.
func (v RawValue) Text() string {
	switch v.Kind {
	case ValueString, ValueNumber:
		return v.String
	default:
		return ""
	}
}

// UnmarshalJSON accepts strings, numbers, booleans and null. Objects and arrays
// decode to null rather than failing the whole document.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = RawValue{}
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n':
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		*v = StringValue(string(data))
	case '{', '[':
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*v = StringValue(string(data))
			return nil
		}
		*v = NumberValue(f)
	}
	return nil
}

// MarshalJSON writes the value back in its original JSON type.
func (v RawValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.String)
	case ValueNumber:
		return []byte(v.String), nil
	case ValueTime:
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// RawItem is one line item as the extractor reported it.
type RawItem struct {
	Description string
	Unit        string
	Quantity    RawValue
	UnitPrice   RawValue
	TotalPrice  RawValue
}

var (
	descriptionKeys = []string{"descricao", "description", "nome", "name", "produto"}
	quantityKeys    = []string{"quantidade", "quantity", "qtd"}
	unitKeys        = []string{"unidade", "unit", "un"}
	unitPriceKeys   = []string{"valor_unitario", "unit_price", "preco_unitario"}
	totalPriceKeys  = []string{"valor_total", "total_price", "valor", "price", "preco"}
)

// UnmarshalJSON accepts both the Portuguese and English item keys extractors emit.
// An entry that is not an object decodes to an empty item, which normalization drops.
func (i *RawItem) UnmarshalJSON(data []byte) error {
	var fields map[string]RawValue
	if err := json.Unmarshal(data, &fields); err != nil {
		*i = RawItem{}
		return nil
	}

	pick := func(keys []string) RawValue {
		for _, k := range keys {
			if v, ok := fields[k]; ok && !v.IsNull() {
				return v
			}
		}
		return RawValue{}
	}

	*i = RawItem{
		Description: pick(descriptionKeys).Text(),
		Unit:        strings.TrimSpace(pick(unitKeys).Text()),
		Quantity:    pick(quantityKeys),
		UnitPrice:   pick(unitPriceKeys),
		TotalPrice:  pick(totalPriceKeys),
	}
	return nil
}

// ExtractionResult is the receipt shape requested from the extractor. Every field is
// untrusted and goes through the normalizer before storage.
type ExtractionResult struct {
	MerchantName   RawValue  `json:"merchant_name"`
	TaxID          RawValue  `json:"cnpj"`
	Address        RawValue  `json:"address"`
	City           RawValue  `json:"city"`
	State          RawValue  `json:"state"`
	Date           RawValue  `json:"date"`
	Time           RawValue  `json:"time"`
	Total          RawValue  `json:"total"`
	Subtotal       RawValue  `json:"subtotal"`
	Discount       RawValue  `json:"discount"`
	PaymentMethod  RawValue  `json:"payment_method"`
	Category       RawValue  `json:"category"`
	DocumentNumber RawValue  `json:"document_number"`
	AccessKey      RawValue  `json:"access_key"`
	Items          []RawItem `json:"items"`
}

// ExtractionKind discriminates the outcomes of an extractor call.
type ExtractionKind string

const (
	// ExtractionValid means the extractor returned a receipt-shaped document.
	ExtractionValid ExtractionKind = "valid"
	// ExtractionDeclined means the extractor said the input is not a receipt.
	ExtractionDeclined ExtractionKind = "declined"
	// ExtractionMalformed means the response could not be parsed.
	ExtractionMalformed ExtractionKind = "malformed"
	// ExtractionUnavailable means no extractor response exists (call failed or skipped).
	ExtractionUnavailable ExtractionKind = "unavailable"
)

// Extraction is the parsed extractor response. Only the field matching Kind is set.
type Extraction struct {
	Err    error
	Kind   ExtractionKind
	Reason string
	Raw    string
	Result ExtractionResult
}

// ValidExtraction wraps a parsed receipt.
func ValidExtraction(r ExtractionResult) Extraction {
	return Extraction{Kind: ExtractionValid, Result: r}
}

// DeclinedExtraction records the extractor refusing the input.
func DeclinedExtraction(reason string) Extraction {
	return Extraction{Kind: ExtractionDeclined, Reason: reason}
}

// MalformedExtraction keeps the raw response for diagnosis.
func MalformedExtraction(raw string, err error) Extraction {
	return Extraction{Kind: ExtractionMalformed, Raw: raw, Err: err}
}

// UnavailableExtraction records that the extractor could not be consulted.
func UnavailableExtraction(err error) Extraction {
	return Extraction{Kind: ExtractionUnavailable, Err: err}
}
