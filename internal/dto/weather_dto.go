package dto

import "time"

type VisitAdvice struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

type BranchWeather struct {
	BranchID    string       `json:"branchId"`
	Name        string       `json:"name"`
	Lat         float64      `json:"lat"`
	Lon         float64      `json:"lon"`
	TempC       int          `json:"tempC"`
	FeelsLikeC  int          `json:"feelsLikeC"`
	WeatherMain string       `json:"weatherMain"`
	WeatherDesc string       `json:"weatherDesc"`
	WindMs      *float64     `json:"windMs"`
	Humidity    *int         `json:"humidity"`
	Advice      *VisitAdvice `json:"advice,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type WeatherResponse struct {
	Items      []BranchWeather `json:"items"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	TTLSeconds int             `json:"ttlSeconds"`
}
