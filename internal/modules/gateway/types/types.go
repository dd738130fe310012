package types

// Reading is the raw sensor sample as received under the "data" key.
type Reading struct {
	Temperature   float64
	Humidity      float64
	Pressure      float64
	GasResistance float64
	// Voltage is optional; nil when the gateway did not report it.
	Voltage *float64
}

type ProcessedReading struct {
	Temperature   float64  `json:"temperature"`
	Humidity      float64  `json:"humidity"`
	Pressure      float64  `json:"pressure"`
	GasResistance float64  `json:"gas_resistance"`
	Prediction    float64  `json:"prediction"`
	BatteryLevel  *float64 `json:"battery_level,omitempty"`
	BatteryLife   *float64 `json:"battery_life,omitempty"`
}

// LocationInfo is the enrichment result. On failure only Error is set.
type LocationInfo struct {
	Country   string   `json:"country,omitempty"`
	Region    string   `json:"region,omitempty"`
	City      string   `json:"city,omitempty"`
	Postal    string   `json:"postal,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
	ISP       string   `json:"isp,omitempty"`
	ASN       string   `json:"asn,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func (l LocationInfo) Failed() bool {
	return l.Error != ""
}

const ProcessedMessage = "Data received and processed"

type Envelope struct {
	Message     string           `json:"message"`
	GatewayData ProcessedReading `json:"gateway_data"`
	Location    *LocationInfo    `json:"location,omitempty"`
}
