package service

import "envgate-server/internal/modules/gateway/types"

// Predict is a stand-in for a real model: the plain sum of the four readings.
func Predict(temperature, humidity, pressure, gasResistance float64) float64 {
	return temperature + humidity + pressure + gasResistance
}

func BatteryLevel(voltage float64) float64 {
	return voltage * 10
}

func BatteryLife(voltage float64) float64 {
	return voltage * 20
}

func Process(r types.Reading) types.ProcessedReading {
	out := types.ProcessedReading{
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		Pressure:      r.Pressure,
		GasResistance: r.GasResistance,
		Prediction:    Predict(r.Temperature, r.Humidity, r.Pressure, r.GasResistance),
	}
	if r.Voltage != nil {
		level := BatteryLevel(*r.Voltage)
		life := BatteryLife(*r.Voltage)
		out.BatteryLevel = &level
		out.BatteryLife = &life
	}
	return out
}
