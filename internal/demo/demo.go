// Package demo declares the example model shared by the demo binaries.
package demo

import (
	"time"

	"go.uber.org/zap"

	"github.com/jonesrussell/esmodel"
	"github.com/jonesrussell/esmodel/schema"
)

// Shirt is the example mapped document.
type Shirt struct {
	esmodel.Base
	Timestamp time.Time `json:"timestamp"`
	Brand     string    `json:"brand"`
	Color     string    `json:"color"`
	Model     string    `json:"model"`
}

// ShirtMapping binds shirts to the "shirts" logical index.
func ShirtMapping() esmodel.Mapping {
	return esmodel.Mapping{
		Index:            "shirts",
		Version:          1,
		NumberOfShards:   1,
		NumberOfReplicas: 1,
		SourceEnabled:    esmodel.SourceStorage(true),
		Schema: schema.Schema{
			"timestamp": schema.Date{},
			"brand":     schema.Keyword{},
			"color":     schema.Keyword{},
			"model":     schema.Keyword{},
		},
	}
}

// NewShirtMapper constructs the shirt mapper.
func NewShirtMapper(backend esmodel.Backend, logger *zap.Logger) (*esmodel.Mapper[Shirt, *Shirt], error) {
	return esmodel.NewMapper[Shirt](backend, ShirtMapping(), logger)
}

// SeedShirts returns one shirt per brand/color/model combination with
// timestamps spread over the days before now.
func SeedShirts(now time.Time) []*Shirt {
	brands := []string{"gucci", "armani"}
	colors := []string{"red", "black"}
	models := []string{"slim", "fat"}

	var shirts []*Shirt
	age := 1
	for _, brand := range brands {
		for _, color := range colors {
			for _, model := range models {
				shirts = append(shirts, &Shirt{
					Timestamp: now.AddDate(0, 0, -age).Add(time.Duration(age) * time.Hour),
					Brand:     brand,
					Color:     color,
					Model:     model,
				})
				age++
			}
		}
	}
	return shirts
}
