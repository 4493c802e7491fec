// Package place fetches rental listings from the Haven API, enriches them
// with bundled descriptive metadata, and caches the enriched collection in
// process memory.
package place

import "encoding/json"

// Place is an enriched rental listing: the remote record merged with static
// descriptive metadata. Remote-authoritative fields (id, price, description)
// always reflect the server; metadata only fills gaps.
type Place struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	FullLocation string   `json:"fullLocation"`
	Price        float64  `json:"price"`
	Rating       float64  `json:"rating"`
	Reviews      int      `json:"reviews"`
	Guests       int      `json:"guests"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	OwnerID      string   `json:"owner_id,omitempty"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"`
	Image        string   `json:"image"`
}

// apiPlace mirrors a listing record as the API returns it.
type apiPlace struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       *float64  `json:"price"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	OwnerID     string    `json:"owner_id"`
	Amenities   []amenity `json:"amenities"`
}

// amenity tolerates both encodings the API uses: a bare name string or an
// {id, name} object.
type amenity struct {
	Name string
}

func (a *amenity) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Name = obj.Name
	return nil
}
