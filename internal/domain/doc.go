// Package domain models the solar feasibility computations: coordinates,
// daily irradiance series, and the impact and viability derivations built on
// top of an aggregated irradiance value.
//
// # Data Sources
//
// Coordinates come from a postal-code geocoding service (OpenStreetMap
// Nominatim by default). Irradiance comes from the NASA POWER daily point API,
// parameter ALLSKY_SFC_SW_DWN (all-sky surface shortwave downward irradiance),
// community RE (renewable energy).
//
// # POWER Data Conventions
//
// Series format:
//
//	{"properties": {"parameter": {"ALLSKY_SFC_SW_DWN": {"20240101": 5.43, ...}}}}
//	Keys are YYYYMMDD dates, values are daily totals in kWh/m²/day.
//
// Missing observations:
//
//	-999 is the POWER fill value for days with no observation. Recent days
//	are frequently reported as -999 until the upstream reanalysis catches up.
//	Any value <= -999 is excluded by [AggregateIrradiance]; the threshold is
//	the provider's convention and must not drift.
//
// # Derived Metrics
//
// Impact (fixed 400 W panel at 80% efficiency):
//
//	daily   = 400 * irradiance / 1000 * 0.8
//	monthly = daily * 30
//	panels  = floor(consumption / monthly)
//	co2     = consumption * 0.9   (kg CO2 per kWh)
//
// Viability (caller-provided panel, 5 sunlight hours per day):
//
//	daily   = wattage * irradiance * 5 * efficiency / 1000
//	monthly = daily * 30
//	viable  = monthly >= 120 kWh
//
// The division by 1000 mirrors the established figures consumers already
// compare against; it is not a dimensional conversion and is kept as is.
//
// Rounding is applied only when a result is constructed. All intermediate
// arithmetic uses unrounded values.
package domain
