package e2e

import (
	"io"
	"strings"
)

const fixtureCSV = `station_id,station_name,timestamp,city,state,latitude,longitude,network,location_type,charger_type,pricing_type,weather_condition,local_event,current_price,utilization_rate,temperature_f,estimated_wait_time_mins,avg_session_duration_mins,station_status
HOT,Hot,2024-04-15 10:00:00,Austin,TX,0,0,Tesla,Mall,DC Fast,flat,Sunny,None,0.45,0.95,72,5,40,operational
NEAR,Near,2024-04-15 10:00:00,Austin,TX,0.01,0.01,Tesla,Mall,DC Fast,flat,Sunny,None,0.50,0.30,72,5,40,operational
FAR,Far,2024-04-15 10:00:00,Austin,TX,5,5,Tesla,Mall,DC Fast,flat,Sunny,None,0.40,0.30,72,5,40,operational
HOT,Hot,2024-05-15 10:00:00,Austin,TX,0,0,Tesla,Mall,DC Fast,flat,Sunny,None,0.45,0.95,72,5,40,operational
NEAR,Near,2024-05-15 10:00:00,Austin,TX,0.01,0.01,Tesla,Mall,DC Fast,flat,Sunny,None,0.50,0.30,72,5,40,operational
FAR,Far,2024-05-15 10:00:00,Austin,TX,5,5,Tesla,Mall,DC Fast,flat,Sunny,None,0.40,0.30,72,5,40,operational
`

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
