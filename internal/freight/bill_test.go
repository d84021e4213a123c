package freight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightx/internal/freight"
	"freightx/internal/genconfig"
)

const sampleBill = `{
 "bl_number": "MAEU123456789",
 "total_cartons": 1200,
 "container_detail": [
  {"container_number": "MSKU1234567", "container_seal_number": "SL998", "container_size_type": "40HC", "carton_amount": 1200}
 ],
 "hts_code": null,
 "is_port_of_arrival_door": false,
 "place_of_delivery": "CHICAGO, IL",
 "port_of_discharge": "LOS ANGELES, CA",
 "port_of_loading": "HAIPHONG",
 "freight_payment_type": "COLLECT",
 "freight_rate_item": [
  {"item_name": "OCEAN FREIGHT", "amount": "75.00", "currency": "USD"},
  {"item_name": "LUMSUM", "amount": 50, "currency": "USD"}
 ],
 "service_contract_number": "SC-2291",
 "shipped_on_board_date": "2024-03-02",
 "freight_charge_total": 125,
 "freight_charge_currency": "USD",
 "total_measurement": 68.5,
 "total_shipment_weight": 10250
}`

func TestValidate_Valid(t *testing.T) {
	bill, err := freight.Validate([]byte(sampleBill))
	require.NoError(t, err)

	require.NotNil(t, bill.BLNumber)
	assert.Equal(t, "MAEU123456789", *bill.BLNumber)
	assert.Nil(t, bill.HTSCode)
	require.Len(t, bill.FreightRateItem, 2)
	assert.Equal(t, "75.00", bill.FreightRateItem[0].Amount)
	assert.Equal(t, float64(50), bill.FreightRateItem[1].Amount)
	require.Len(t, bill.ContainerDetail, 1)
	assert.Equal(t, float64(1200), bill.ContainerDetail[0].CartonAmount)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `bl_number: x`},
		{"missing required", `{"bl_number":"X","freight_payment_type":"COLLECT"}`},
		{"bad payment type", `{"bl_number":"X","freight_payment_type":"CASH","freight_rate_item":[]}`},
		{"negative weight", `{"bl_number":"X","freight_payment_type":"PREPAID","freight_rate_item":[],"total_shipment_weight":-1}`},
		{"rate item without currency", `{"bl_number":"X","freight_payment_type":"PREPAID","freight_rate_item":[{"item_name":"LTHC","amount":"30.00"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := freight.Validate([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	fenced := "Step 1: the table has two columns.\n```json\n{\"bl_number\": \"A\"}\n```\nDone."
	got, err := freight.ExtractJSON(fenced)
	require.NoError(t, err)
	assert.Equal(t, `{"bl_number": "A"}`, got)

	bare := "Here you go: {\"bl_number\": \"B\", \"freight_rate_item\": [{\"x\": 1}]} hope that helps"
	got, err = freight.ExtractJSON(bare)
	require.NoError(t, err)
	assert.Equal(t, `{"bl_number": "B", "freight_rate_item": [{"x": 1}]}`, got)

	_, err = freight.ExtractJSON("I could not find a freight table.")
	assert.ErrorIs(t, err, freight.ErrNoJSON)
}

func TestParseResult(t *testing.T) {
	bill, err := freight.ParseResult("Reasoning...\n```json\n" + sampleBill + "\n```")
	require.NoError(t, err)
	require.NotNil(t, bill.FreightPaymentType)
	assert.Equal(t, "COLLECT", *bill.FreightPaymentType)
}

func TestDefaultConfig_Parses(t *testing.T) {
	cfg, err := genconfig.Parse([]byte(freight.DefaultConfig))
	require.NoError(t, err)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float64(0), *cfg.Temperature)
	assert.Nil(t, cfg.MaxTokens)
	assert.Empty(t, cfg.Extra)
}

func TestPrompts(t *testing.T) {
	assert.Contains(t, freight.SystemPrompt, "freight_rate_item")
	assert.NotContains(t, freight.SystemPrompt, "\r")
	assert.Equal(t, "Please extract the information from the freight charge table in the document provided", freight.UserPrompt)
}
