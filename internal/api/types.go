package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Time accepts the zone-less ISO timestamps FastAPI emits for naive datetimes
// as well as RFC 3339 and bare dates. Zone-less values are taken as UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func ParseTime(s string) (Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Time{t}, nil
		}
	}
	return Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

type User struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name,omitempty"`
	Role      string  `json:"role"`
	IsActive  bool    `json:"is_active"`
	CreatedAt Time    `json:"created_at"`
	UpdatedAt Time    `json:"updated_at"`
}

// DisplayName is the full name when set, the username otherwise.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

type Plantation struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LocationLat *float64 `json:"location_lat,omitempty"`
	LocationLng *float64 `json:"location_lng,omitempty"`
	AreaHa      *float64 `json:"area_ha,omitempty"`
	Address     *string  `json:"address,omitempty"`
	CreatedAt   Time     `json:"created_at"`
	UpdatedAt   Time     `json:"updated_at"`
}

type PlantationInput struct {
	Name        string   `json:"name"`
	LocationLat *float64 `json:"location_lat,omitempty"`
	LocationLng *float64 `json:"location_lng,omitempty"`
	AreaHa      *float64 `json:"area_ha,omitempty"`
	Address     *string  `json:"address,omitempty"`
}

type Block struct {
	ID           string   `json:"id"`
	PlantationID string   `json:"plantation_id"`
	Name         string   `json:"name"`
	AreaHa       *float64 `json:"area_ha,omitempty"`
	PlantingYear *int     `json:"planting_year,omitempty"`
	CreatedAt    Time     `json:"created_at"`
	UpdatedAt    Time     `json:"updated_at"`
}

type HarvestRecord struct {
	ID                      string   `json:"id"`
	BlockID                 string   `json:"block_id"`
	HarvesterID             string   `json:"harvester_id"`
	Date                    Time     `json:"date"`
	TonnesFreshFruitBunches float64  `json:"tonnes_fresh_fruit_bunches"`
	BatchCode               string   `json:"batch_code"`
	GeoLat                  *float64 `json:"geo_lat,omitempty"`
	GeoLng                  *float64 `json:"geo_lng,omitempty"`
	Notes                   *string  `json:"notes,omitempty"`
	CreatedAt               Time     `json:"created_at"`
	UpdatedAt               Time     `json:"updated_at"`
}

// HarvestInput is what the client may send; the batch code is assigned by the
// server.
type HarvestInput struct {
	BlockID                 string   `json:"block_id"`
	HarvesterID             string   `json:"harvester_id"`
	Date                    Time     `json:"date"`
	TonnesFreshFruitBunches float64  `json:"tonnes_fresh_fruit_bunches"`
	GeoLat                  *float64 `json:"geo_lat,omitempty"`
	GeoLng                  *float64 `json:"geo_lng,omitempty"`
	Notes                   *string  `json:"notes,omitempty"`
}

type DashboardStats struct {
	TotalPlantations      int     `json:"total_plantations"`
	TotalBlocks           int     `json:"total_blocks"`
	TotalHarvestToday     float64 `json:"total_harvest_today"`
	TotalHarvestThisMonth float64 `json:"total_harvest_this_month"`
}

type PlantationDashboard struct {
	Plantation       Plantation      `json:"plantation"`
	TotalBlocks      int             `json:"total_blocks"`
	TotalAreaHa      float64         `json:"total_area_ha"`
	HarvestThisMonth float64         `json:"harvest_this_month"`
	RecentHarvests   []HarvestRecord `json:"recent_harvests"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
