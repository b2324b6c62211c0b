package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/weather-gateway/internal/weather"
)

const (
	DefaultNWSBaseURL = "https://api.weather.gov"
	nwsSource         = "api.weather.gov"
)

// NWS adapts the US National Weather Service API. It only covers US
// territory; points outside it answer 404, which maps to NoDataForRegion.
type NWS struct {
	client *Client
}

func NewNWS(baseURL string, opts Options) *NWS {
	if baseURL == "" {
		baseURL = DefaultNWSBaseURL
	}
	headers := http.Header{}
	headers.Set("Accept", "application/geo+json")
	return &NWS{client: NewClient("nws", baseURL, "/", headers, opts)}
}

func (n *NWS) Client() *Client {
	return n.client
}

type nwsPoint struct {
	Properties struct {
		GridID              string `json:"gridId"`
		ObservationStations string `json:"observationStations"`
		TimeZone            string `json:"timeZone"`
	} `json:"properties"`
}

// point resolves a coordinate to its NWS grid metadata.
func (n *NWS) point(ctx context.Context, op string, c weather.Coordinate) (nwsPoint, error) {
	endpoint := fmt.Sprintf("/points/%s,%s", formatCoord(c.Latitude), formatCoord(c.Longitude))
	body, err := n.client.Fetch(ctx, endpoint, nil)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nwsPoint{}, &weather.Error{Kind: weather.KindNoDataForRegion, Op: op, Message: "point is outside NWS coverage", Cause: err}
		}
		return nwsPoint{}, err
	}
	var p nwsPoint
	if err := decode(op, body, &p); err != nil {
		return nwsPoint{}, err
	}
	if p.Properties.ObservationStations == "" {
		return nwsPoint{}, weather.E(weather.KindNoDataForRegion, op, "no observation stations for %s", c.Key())
	}
	return p, nil
}

// CurrentConditions returns the latest observation from the station nearest
// to the point.
func (n *NWS) CurrentConditions(ctx context.Context, c weather.Coordinate) (weather.CurrentConditions, error) {
	const op = "get_current_conditions"

	p, err := n.point(ctx, op, c)
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	params := url.Values{}
	params.Set("limit", "1")
	body, err := n.client.Fetch(ctx, p.Properties.ObservationStations, params)
	if err != nil {
		return weather.CurrentConditions{}, err
	}
	var stations struct {
		Features []struct {
			Properties struct {
				StationIdentifier string `json:"stationIdentifier"`
				Name              string `json:"name"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := decode(op, body, &stations); err != nil {
		return weather.CurrentConditions{}, err
	}
	if len(stations.Features) == 0 {
		return weather.CurrentConditions{}, weather.E(weather.KindNoDataForRegion, op, "no observation stations near %s", c.Key())
	}
	station := stations.Features[0].Properties

	body, err = n.client.Fetch(ctx, "/stations/"+url.PathEscape(station.StationIdentifier)+"/observations/latest", nil)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return weather.CurrentConditions{}, &weather.Error{Kind: weather.KindNoDataForRegion, Op: op, Message: "station has no recent observation", Cause: err}
		}
		return weather.CurrentConditions{}, err
	}
	var obs struct {
		Properties struct {
			Timestamp          time.Time        `json:"timestamp"`
			TextDescription    string           `json:"textDescription"`
			Temperature        weather.Quantity `json:"temperature"`
			Dewpoint           weather.Quantity `json:"dewpoint"`
			RelativeHumidity   weather.Quantity `json:"relativeHumidity"`
			WindSpeed          weather.Quantity `json:"windSpeed"`
			WindGust           weather.Quantity `json:"windGust"`
			WindDirection      weather.Quantity `json:"windDirection"`
			BarometricPressure weather.Quantity `json:"barometricPressure"`
			SeaLevelPressure   weather.Quantity `json:"seaLevelPressure"`
			Visibility         weather.Quantity `json:"visibility"`
			HeatIndex          weather.Quantity `json:"heatIndex"`
			WindChill          weather.Quantity `json:"windChill"`
		} `json:"properties"`
	}
	if err := decode(op, body, &obs); err != nil {
		return weather.CurrentConditions{}, err
	}

	o := obs.Properties
	pressure := o.SeaLevelPressure.Hectopascals()
	if pressure == nil {
		pressure = o.BarometricPressure.Hectopascals()
	}
	return weather.CurrentConditions{
		Coordinate:       c,
		Station:          station.StationIdentifier,
		StationName:      station.Name,
		ObservedAt:       o.Timestamp.UTC(),
		Description:      o.TextDescription,
		Condition:        weather.ConditionFromText(o.TextDescription),
		TemperatureC:     o.Temperature.Celsius(),
		DewpointC:        o.Dewpoint.Celsius(),
		HumidityPct:      o.RelativeHumidity.Plain(),
		WindSpeedMS:      o.WindSpeed.MetersPerSecond(),
		WindGustMS:       o.WindGust.MetersPerSecond(),
		WindDirectionDeg: o.WindDirection.Plain(),
		PressureHpa:      pressure,
		VisibilityKm:     o.Visibility.Kilometers(),
		HeatIndexC:       o.HeatIndex.Celsius(),
		WindChillC:       o.WindChill.Celsius(),
		Source:           nwsSource,
	}, nil
}

// Alerts returns the alerts currently in effect at the point. No alerts is a
// valid, empty answer.
func (n *NWS) Alerts(ctx context.Context, c weather.Coordinate) (weather.Alerts, error) {
	const op = "get_alerts"

	params := url.Values{}
	params.Set("point", formatCoord(c.Latitude)+","+formatCoord(c.Longitude))
	body, err := n.client.Fetch(ctx, "/alerts/active", params)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound || StatusCode(err) == http.StatusBadRequest {
			return weather.Alerts{}, &weather.Error{Kind: weather.KindNoDataForRegion, Op: op, Message: "point is outside NWS coverage", Cause: err}
		}
		return weather.Alerts{}, err
	}

	var resp struct {
		Features []struct {
			Properties struct {
				ID          string `json:"id"`
				Event       string `json:"event"`
				Headline    string `json:"headline"`
				Severity    string `json:"severity"`
				Urgency     string `json:"urgency"`
				Certainty   string `json:"certainty"`
				AreaDesc    string `json:"areaDesc"`
				Effective   string `json:"effective"`
				Expires     string `json:"expires"`
				SenderName  string `json:"senderName"`
				Description string `json:"description"`
				Instruction string `json:"instruction"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.Alerts{}, err
	}

	out := weather.Alerts{Coordinate: c, Alerts: make([]weather.Alert, 0, len(resp.Features)), Source: nwsSource}
	for _, f := range resp.Features {
		p := f.Properties
		out.Alerts = append(out.Alerts, weather.Alert{
			ID:          p.ID,
			Event:       p.Event,
			Headline:    p.Headline,
			Severity:    p.Severity,
			Urgency:     p.Urgency,
			Certainty:   p.Certainty,
			AreaDesc:    p.AreaDesc,
			Effective:   p.Effective,
			Expires:     p.Expires,
			SenderName:  p.SenderName,
			Description: p.Description,
			Instruction: p.Instruction,
		})
	}
	out.Count = len(out.Alerts)
	return out, nil
}
