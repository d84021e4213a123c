// Package freight holds the sea waybill prompt templates and the bill JSON schema used to
// check what a model returned.
package freight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when a model answer carries no JSON object.
var ErrNoJSON = errors.New("no JSON object found in extraction result")

// ContainerDetail is one container line of the bill.
type ContainerDetail struct {
	ContainerNumber     *string `json:"container_number"`
	ContainerSealNumber *string `json:"container_seal_number"`
	ContainerSizeType   *string `json:"container_size_type"`
	CartonAmount        float64 `json:"carton_amount"`
}

// FreightRateItem is one row of the freight charge table after payment-type filtering.
type FreightRateItem struct {
	ItemName *string `json:"item_name"`
	Amount   any     `json:"amount"`
	Currency *string `json:"currency"`
}

// BillInfo is the structured bill of lading the freight prompts ask for.
type BillInfo struct {
	BLNumber              *string           `json:"bl_number"`
	TotalCartons          float64           `json:"total_cartons"`
	ContainerDetail       []ContainerDetail `json:"container_detail"`
	HTSCode               *string           `json:"hts_code"`
	IsPortOfArrivalDoor   bool              `json:"is_port_of_arrival_door"`
	PlaceOfDelivery       *string           `json:"place_of_delivery"`
	PortOfDischarge       *string           `json:"port_of_discharge"`
	PortOfLoading         *string           `json:"port_of_loading"`
	FreightPaymentType    *string           `json:"freight_payment_type"`
	FreightRateItem       []FreightRateItem `json:"freight_rate_item"`
	ServiceContractNumber *string           `json:"service_contract_number"`
	ShippedOnBoardDate    *string           `json:"shipped_on_board_date"`
	FreightChargeTotal    float64           `json:"freight_charge_total"`
	FreightChargeCurrency string            `json:"freight_charge_currency"`
	TotalMeasurement      float64           `json:"total_measurement"`
	TotalShipmentWeight   float64           `json:"total_shipment_weight"`
}

var nullableString = map[string]any{"type": []any{"string", "null"}}

// BillSchema is the JSON Schema for BillInfo. Models fill unknown fields with null, so string
// fields are nullable; amounts come back either as strings or numbers.
var BillSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"required": []any{
		"bl_number",
		"freight_payment_type",
		"freight_rate_item",
	},
	"properties": map[string]any{
		"bl_number":     nullableString,
		"total_cartons": map[string]any{"type": "number", "minimum": 0},
		"container_detail": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"container_number":      nullableString,
					"container_seal_number": nullableString,
					"container_size_type":   nullableString,
					"carton_amount":         map[string]any{"type": "number", "minimum": 0},
				},
			},
		},
		"hts_code":                nullableString,
		"is_port_of_arrival_door": map[string]any{"type": "boolean"},
		"place_of_delivery":       nullableString,
		"port_of_discharge":       nullableString,
		"port_of_loading":         nullableString,
		"freight_payment_type": map[string]any{
			"enum": []any{"PREPAID", "COLLECT", nil},
		},
		"freight_rate_item": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"item_name", "amount", "currency"},
				"properties": map[string]any{
					"item_name": nullableString,
					"amount":    map[string]any{"type": []any{"string", "number", "null"}},
					"currency":  nullableString,
				},
			},
		},
		"service_contract_number": nullableString,
		"shipped_on_board_date":   nullableString,
		"freight_charge_total":    map[string]any{"type": "number"},
		"freight_charge_currency": map[string]any{"type": []any{"string", "null"}},
		"total_measurement":       map[string]any{"type": "number", "minimum": 0},
		"total_shipment_weight":   map[string]any{"type": "number", "minimum": 0},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func billSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(BillSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("bill.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("bill.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON pulls the JSON object out of a model answer: the first ```json fenced block
// when present, otherwise the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1]), nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// Validate checks data against BillSchema and decodes it.
func Validate(data []byte) (*BillInfo, error) {
	schema, err := billSchema()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}
	var bill BillInfo
	if err := json.Unmarshal(data, &bill); err != nil {
		return nil, fmt.Errorf("decode bill: %w", err)
	}
	return &bill, nil
}

// ParseResult extracts and validates the bill carried in a model answer.
func ParseResult(text string) (*BillInfo, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	return Validate([]byte(raw))
}
