package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/citygallery/citygallery/pkg/cache"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var rainyCondition = regexp.MustCompile(`(?i)rain|drizzle|thunderstorm`)

// WeatherService serves the branch weather advisory. Upstream responses
// are cached per coordinate pair so branches sharing a location reuse
// one fetch.
type WeatherService interface {
	BranchesWeather(ctx context.Context) (*dto.WeatherResponse, error)
}

type weatherService struct {
	branchRepo repository.BranchRepository
	cache      cache.Cache
	client     *http.Client
	apiKey     string
	baseURL    string
	ttl        time.Duration
}

func NewWeatherService(branchRepo repository.BranchRepository, c cache.Cache, apiKey string, ttl time.Duration) WeatherService {
	return &weatherService{
		branchRepo: branchRepo,
		cache:      c,
		client:     &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    openWeatherBaseURL,
		ttl:        ttl,
	}
}

// openWeatherPayload mirrors the fields consumed from the upstream API.
type openWeatherPayload struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (s *weatherService) BranchesWeather(ctx context.Context) (*dto.WeatherResponse, error) {
	if s.apiKey == "" {
		return nil, apperror.New(http.StatusInternalServerError, "missing weather API key", apperror.ErrInternal)
	}

	branches, err := s.branchRepo.FindAll(ctx, "")
	if err != nil {
		return nil, err
	}

	items := make([]dto.BranchWeather, len(branches))
	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := dto.BranchWeather{
				BranchID: branch.ID.String(),
				Name:     branch.Name,
				Lat:      branch.Lat,
				Lon:      branch.Lng,
			}
			wx, err := s.fetchWeather(ctx, branch.Lat, branch.Lng)
			if err != nil {
				item.Error = err.Error()
			} else {
				wind := wx.Wind.Speed
				item.TempC = int(math.Round(wx.Main.Temp))
				item.FeelsLikeC = int(math.Round(wx.Main.FeelsLike))
				if len(wx.Weather) > 0 {
					item.WeatherMain = wx.Weather[0].Main
					item.WeatherDesc = wx.Weather[0].Description
				}
				item.WindMs = &wind
				humidity := wx.Main.Humidity
				item.Humidity = &humidity
				advice := visitAdvice(item.TempC, item.WeatherMain, wind)
				item.Advice = &advice
			}
			items[i] = item
		}()
	}
	wg.Wait()

	return &dto.WeatherResponse{
		Items:      items,
		UpdatedAt:  time.Now().UTC(),
		TTLSeconds: int(s.ttl.Seconds()),
	}, nil
}

// fetchWeather consults the cache before hitting the upstream API.
// Coordinates are quantized to two decimals so nearby branches share
// a cache entry.
func (s *weatherService) fetchWeather(ctx context.Context, lat, lng float64) (*openWeatherPayload, error) {
	key := fmt.Sprintf("weather:%.2f,%.2f", lat, lng)

	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached openWeatherPayload
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}

	reqURL := fmt.Sprintf("%s?lat=%s&lon=%s&appid=%s&units=metric",
		s.baseURL,
		url.QueryEscape(fmt.Sprintf("%g", lat)),
		url.QueryEscape(fmt.Sprintf("%g", lng)),
		url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather upstream returned %d", resp.StatusCode)
	}

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(payload); err == nil {
		_ = s.cache.Set(ctx, key, raw, s.ttl)
	}
	return &payload, nil
}

// visitAdvice classifies current conditions into a label and tone for
// the landing page. Rain always wins; otherwise temperature bands and
// wind decide.
func visitAdvice(tempC int, weatherMain string, windMs float64) dto.VisitAdvice {
	windy := windMs > 9
	rainy := rainyCondition.MatchString(weatherMain)

	switch {
	case rainy:
		return dto.VisitAdvice{Label: "Rainy, check opening hours and bring an umbrella", Tone: "warn"}
	case tempC >= 15 && tempC <= 27 && !windy:
		return dto.VisitAdvice{Label: "Great day for a visit", Tone: "ok"}
	case tempC >= 8 && tempC < 15:
		return dto.VisitAdvice{Label: "Chilly, perfect for the indoor gallery", Tone: "soft"}
	case tempC > 27:
		return dto.VisitAdvice{Label: "Hot, an air-conditioned indoor visit is best", Tone: "soft"}
	case tempC < 8:
		return dto.VisitAdvice{Label: "Cold, the indoor gallery is the better pick", Tone: "soft"}
	case windy:
		return dto.VisitAdvice{Label: "Strong wind, better indoors", Tone: "soft"}
	default:
		return dto.VisitAdvice{Label: "Fine for a visit", Tone: "ok"}
	}
}
