package grid

import (
	"math/rand/v2"

	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/scene"
)

// SpawnRequest builds the world SPAWN message for the placed objects and the
// optional light.
func SpawnRequest(objects []*scene.Object, light *scene.Object) *msgs.WorldRequest {
	entities := make([]msgs.Entity, 0, len(objects)+1)
	for _, o := range objects {
		entities = append(entities, msgs.EntityOf(o))
	}
	if light != nil {
		entities = append(entities, msgs.EntityOf(light))
	}
	return msgs.Spawn(entities)
}

// VisualRequest picks a material for every object that offers any, records
// it on the object and returns the visual UPDATE message carrying the
// choices.
func VisualRequest(objects []*scene.Object, rng *rand.Rand) *msgs.VisualRequest {
	changes := make([]msgs.VisualChange, 0, len(objects))
	for _, o := range objects {
		if len(o.Materials) == 0 {
			continue
		}
		o.Material = o.Materials[rng.IntN(len(o.Materials))]
		changes = append(changes, msgs.VisualChange{Name: o.Name, Material: o.Material})
	}
	return &msgs.VisualRequest{Type: msgs.VisualUpdate, Changes: changes}
}
