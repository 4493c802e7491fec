package place

import (
	"fmt"
	"strings"
)

// Defaults applied when neither the API record nor the metadata table has a
// value.
const (
	defaultRating    = 4.9
	defaultGuests    = 4
	defaultBedrooms  = 2
	defaultBathrooms = 1
	placeholderImage = "/placeholder.svg"
)

// enrich merges a remote record with bundled metadata looked up by
// lower-cased name. API fields win; metadata fills gaps; fixed defaults
// cover fields absent in both.
func enrich(api apiPlace) Place {
	key := strings.ToLower(firstNonEmpty(api.Title, api.Name))
	meta := metadataByName()[key]

	p := Place{
		ID:           api.ID,
		Name:         firstNonEmpty(api.Title, metaName(meta), "Property"),
		Title:        firstNonEmpty(api.Title, metaName(meta)),
		Description:  api.Description,
		Latitude:     api.Latitude,
		Longitude:    api.Longitude,
		OwnerID:      api.OwnerID,
		FullLocation: formatLocation(api, meta),
		Rating:       defaultRating,
		Guests:       defaultGuests,
		Bedrooms:     defaultBedrooms,
		Bathrooms:    defaultBathrooms,
		Images:       []string{placeholderImage},
	}

	if api.Price != nil {
		p.Price = *api.Price
	}

	for _, a := range api.Amenities {
		if a.Name != "" {
			p.Amenities = append(p.Amenities, a.Name)
		}
	}

	if meta != nil {
		p.Type = meta.Type
		p.Location = firstNonEmpty(meta.Location, meta.FullLocation, p.FullLocation)
		if api.Price == nil {
			p.Price = meta.Price
		}
		if p.Description == "" {
			p.Description = meta.Description
		}
		if meta.Rating > 0 {
			p.Rating = meta.Rating
		}
		p.Reviews = meta.Reviews
		if meta.Guests > 0 {
			p.Guests = meta.Guests
		}
		if meta.Bedrooms > 0 {
			p.Bedrooms = meta.Bedrooms
		}
		if meta.Bathrooms > 0 {
			p.Bathrooms = meta.Bathrooms
		}
		if len(p.Amenities) == 0 {
			p.Amenities = append([]string(nil), meta.Amenities...)
		}
		if len(meta.Images) > 0 {
			p.Images = append([]string(nil), meta.Images...)
		} else if meta.Image != "" {
			p.Images = []string{meta.Image}
		}
	} else {
		p.Location = p.FullLocation
	}

	p.Image = p.Images[0]
	return p
}

// formatLocation picks the display location: metadata full location, then
// metadata location, then the coordinate pair, then the unknown marker.
func formatLocation(api apiPlace, meta *Metadata) string {
	if meta != nil {
		if meta.FullLocation != "" {
			return meta.FullLocation
		}
		if meta.Location != "" {
			return meta.Location
		}
	}
	if api.Latitude != nil && api.Longitude != nil {
		return fmt.Sprintf("%.3f, %.3f", *api.Latitude, *api.Longitude)
	}
	return "Unknown location"
}

func metaName(meta *Metadata) string {
	if meta == nil {
		return ""
	}
	return meta.Name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
