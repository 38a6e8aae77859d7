package catalog

import "fmt"

// Channel counts for the numbered sensor families.
const (
	maxChannels     = 8
	maxPMChannels   = 4
	maxLeakChannels = 4
)

var entries = buildEntries()

type builder map[string]Entry

func (b builder) add(key, name string, system UnitSystem, kind Kind) {
	if _, dup := b[key]; dup {
		panic(fmt.Sprintf("catalog: duplicate field key %q", key))
	}
	b[key] = Entry{Key: key, Name: name, System: system, Kind: kind, Format: kind.Format()}
}

// battery registers a battery field. Stations report batteries as level
// codes, voltages or percentages depending on the sensor model, so every
// battery field decodes as a float regardless of kind.
func (b builder) battery(key, name string, kind Kind) {
	b.add(key, name, SystemNone, kind)
	e := b[key]
	e.Format = FormatFloat
	b[key] = e
}

// channels registers one entry per numbered channel 1..n. The key and name
// patterns take the channel number as their only verb.
func (b builder) channels(n int, keyPattern, namePattern string, system UnitSystem, kind Kind) {
	for ch := 1; ch <= n; ch++ {
		b.add(fmt.Sprintf(keyPattern, ch), fmt.Sprintf(namePattern, ch), system, kind)
	}
}

func (b builder) batteryChannels(n int, keyPattern, namePattern string, kind Kind) {
	for ch := 1; ch <= n; ch++ {
		b.battery(fmt.Sprintf(keyPattern, ch), fmt.Sprintf(namePattern, ch), kind)
	}
}

func buildEntries() map[string]Entry {
	b := builder{}

	// Pressure
	b.add("baromabshpa", "Absolute Pressure", SystemMetric, KindPressure)
	b.add("baromrelhpa", "Relative Pressure", SystemMetric, KindPressure)
	b.add("baromabsin", "Absolute Pressure", SystemImperial, KindPressure)
	b.add("baromrelin", "Relative Pressure", SystemImperial, KindPressure)

	// Rain
	for _, r := range []struct{ prefix, name string }{
		{"rainrate", "Rain Rate"},
		{"eventrain", "Event Rain Rate"},
		{"hourlyrain", "Hourly Rain Rate"},
		{"dailyrain", "Daily Rain Rate"},
		{"weeklyrain", "Weekly Rain Rate"},
		{"monthlyrain", "Monthly Rain Rate"},
		{"yearlyrain", "Yearly Rain Rate"},
	} {
		b.add(r.prefix+"in", r.name, SystemImperial, KindRate)
		b.add(r.prefix+"mm", r.name, SystemMetric, KindRate)
	}
	b.add("totalrainin", "Total Rain", SystemImperial, KindLength)
	b.add("totalrainmm", "Total Rain", SystemMetric, KindLength)

	// Humidity
	b.add("humidity", "Humidity", SystemNone, KindHumidity)
	b.add("humidityin", "Indoor Humidity", SystemNone, KindHumidity)
	b.channels(maxChannels, "humidity%d", "Humidity %d", SystemNone, KindHumidity)

	// Wind
	b.add("winddir", "Wind Direction", SystemNone, KindAngle)
	b.add("winddir_avg10m", "Wind Direction 10m Avg", SystemNone, KindAngle)
	b.add("windspeedmph", "Wind Speed", SystemImperial, KindSpeed)
	b.add("windspeedkmh", "Wind Speed", SystemMetric, KindSpeed)
	b.add("windspeedms", "Wind Speed", SystemMetricSpeed, KindSpeed)
	b.add("windspdmph_avg10m", "Wind Speed 10m Avg", SystemImperial, KindSpeed)
	b.add("windspdkmh_avg10m", "Wind Speed 10m Avg", SystemMetric, KindSpeed)
	b.add("windspdms_avg10m", "Wind Speed 10m Avg", SystemMetricSpeed, KindSpeed)
	b.add("windgustmph", "Wind Gust", SystemImperial, KindSpeed)
	b.add("windgustkmh", "Wind Gust", SystemMetric, KindSpeed)
	b.add("windgustms", "Wind Gust", SystemMetricSpeed, KindSpeed)
	b.add("maxdailygust", "Max Daily Wind Gust", SystemImperial, KindSpeed)
	b.add("maxdailygustkmh", "Max Daily Wind Gust", SystemMetric, KindSpeed)
	b.add("maxdailygustms", "Max Daily Wind Gust", SystemMetricSpeed, KindSpeed)

	// Temperature, dew point and wind chill
	b.add("tempf", "Outdoor Temperature", SystemImperial, KindTemperature)
	b.add("tempc", "Outdoor Temperature", SystemMetric, KindTemperature)
	b.add("tempinf", "Indoor Temperature", SystemImperial, KindTemperature)
	b.add("tempinc", "Indoor Temperature", SystemMetric, KindTemperature)
	b.channels(maxChannels, "temp%df", "Temperature %d", SystemImperial, KindTemperature)
	b.channels(maxChannels, "temp%dc", "Temperature %d", SystemMetric, KindTemperature)
	b.add("dewpointf", "Dewpoint", SystemImperial, KindTemperature)
	b.add("dewpointc", "Dewpoint", SystemMetric, KindTemperature)
	b.add("dewpointinf", "Indoor Dewpoint", SystemImperial, KindTemperature)
	b.add("dewpointinc", "Indoor Dewpoint", SystemMetric, KindTemperature)
	b.channels(maxChannels, "dewpoint%df", "Dewpoint %d", SystemImperial, KindTemperature)
	b.channels(maxChannels, "dewpoint%dc", "Dewpoint %d", SystemMetric, KindTemperature)
	b.add("windchillf", "Windchill", SystemImperial, KindTemperature)
	b.add("windchillc", "Windchill", SystemMetric, KindTemperature)

	// Solar
	b.add("solarradiation", "Solar Radiation", SystemNone, KindIrradiance)
	b.add("uv", "UV Index", SystemNone, KindUVIndex)

	// WH51 soil moisture
	b.channels(maxChannels, "soilmoisture%d", "Soil Moisture %d", SystemNone, KindHumidity)

	// WH41 PM2.5
	b.channels(maxPMChannels, "pm25_ch%d", "PM2.5 %d", SystemNone, KindParticulate)
	b.channels(maxPMChannels, "pm25_avg_24h_ch%d", "PM2.5 24h Average %d", SystemNone, KindParticulate)

	// WH57 lightning
	b.add("lightning_time", "Last Lightning strike", SystemNone, KindTimestamp)
	b.add("lightning_num", "Lightning strikes", SystemNone, KindCount)
	b.add("lightning", "Lightning strike distance", SystemMetric, KindDistance)
	b.add("lightning_mi", "Lightning strike distance", SystemImperial, KindDistance)

	// WH45 indoor air quality
	b.add("tf_co2", "WH45 Temperature", SystemImperial, KindTemperature)
	b.add("tf_co2c", "WH45 Temperature", SystemMetric, KindTemperature)
	b.add("humi_co2", "WH45 Humidity", SystemNone, KindHumidity)
	b.add("pm25_co2", "WH45 PM2.5 CO2", SystemNone, KindParticulate)
	b.add("pm25_24h_co2", "WH45 PM2.5 CO2 24h average", SystemNone, KindParticulate)
	b.add("pm10_co2", "WH45 PM10 CO2", SystemNone, KindParticulatePM10)
	b.add("pm10_24h_co2", "WH45 PM10 CO2 24h average", SystemNone, KindParticulatePM10)
	b.add("co2", "WH45 CO2", SystemNone, KindCO2PPM)
	b.add("co2_24h", "WH45 CO2 24h average", SystemNone, KindCO2PPM)

	// WH55 leak detection
	b.channels(maxLeakChannels, "leak_ch%d", "Leak Detection %d", SystemNone, KindBooleanFlag)

	// WN34 soil temperature
	b.channels(maxChannels, "tf_ch%d", "Soil Temperature %d", SystemImperial, KindTemperature)
	b.channels(maxChannels, "tf_ch%dc", "Soil Temperature %d", SystemMetric, KindTemperature)

	// Batteries
	b.battery("wh25batt", "WH25 Battery", KindBooleanFlag)
	b.battery("wh26batt", "WH26 Battery", KindBooleanFlag)
	b.battery("wh40batt", "WH40 Battery", KindVoltage)
	b.battery("wh57batt", "WH57 Battery", KindBatteryPercent)
	b.battery("wh65batt", "WH65 Battery", KindBooleanFlag)
	b.battery("wh68batt", "WH68 Battery", KindVoltage)
	b.battery("wh80batt", "WH80 Battery", KindVoltage)
	b.battery("co2_batt", "WH45 Battery", KindBatteryPercent)
	b.batteryChannels(maxChannels, "soilbatt%d", "Soil Battery %d", KindVoltage)
	b.batteryChannels(maxChannels, "batt%d", "Battery %d", KindBooleanFlag)
	b.batteryChannels(maxChannels, "pm25batt%d", "PM2.5 %d Battery", KindBatteryPercent)
	b.batteryChannels(maxChannels, "leakbatt%d", "Leak Detection %d Battery", KindBatteryPercent)
	b.batteryChannels(maxChannels, "tf_batt%d", "Soil Temperature %d Battery", KindVoltage)

	// Station metadata
	b.add("mac", "macaddr", SystemNone, KindInternal)
	b.add("dateutc", "dateutc", SystemNone, KindInternal)
	b.add("fields", "field list", SystemNone, KindInternal)
	b.add("PASSKEY", "passkey", SystemNone, KindInternal)
	b.add("stationtype", "stationtype", SystemNone, KindInternal)
	b.add("freq", "freq", SystemNone, KindInternal)
	b.add("model", "model", SystemNone, KindInternal)

	return b
}
