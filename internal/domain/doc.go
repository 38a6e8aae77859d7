// Package domain decodes and normalizes Ecowitt weather station reports.
//
// # Wire Format
//
// Ecowitt gateways and consoles (GW1000, GW1100, HP2551, HP3501 and friends)
// push an application/x-www-form-urlencoded POST to a "customized" upload
// server every 16-60 seconds. Each pair is one field, for example:
//
//	PASSKEY=A1B2...&stationtype=GW1000B_V1.6.8&dateutc=2024-04-26+15:10:03
//	&tempf=68.0&humidity=50&windspeedmph=10.0&baromrelin=29.920&model=GW1000
//
// Values are always strings on the wire and always imperial: °F, mph,
// inches of rain, inches of mercury. Field names are fixed per sensor model;
// numbered sensor families (WH31 temp1f..temp8f, WH51 soilmoisture1..8,
// WN34 tf_ch1..8) carry the channel in the key. See package catalog for the
// full field table.
//
// # Normalization
//
// [Normalize] turns a [RawRecord] into a typed [Record]:
//
//  1. Every cataloged field is decoded to the integer, float or text form
//     its kind declares. A field that fails to decode keeps its raw string
//     and is reported as a [FieldError]; its siblings are unaffected.
//  2. Unit twins are derived from imperial sources: °C from °F, km/h and
//     m/s from mph, mm from inches, hPa from inHg, miles from lightning km.
//  3. Calculated metrics are added when their inputs are present: wind chill
//     (see [WindChill] and [WindchillMode]) and dew point per channel (see
//     [DewPointC]).
//
// Unknown fields pass through as text so no telemetry is silently dropped.
// Absent sources silently skip their derived fields.
//
// # Rounding
//
// Derived values are rounded to two decimals, half-to-even on the exact
// binary value, matching a correctly rounded decimal formatter. Lightning
// miles round half-to-even to an integer.
package domain
