package testutil

import "fmt"

// BoxTemplate is a mesh template with a unit footprint resting on its origin.
const BoxTemplate = `
model "box" {
  kind = "mesh"
  uri  = "model://box"
  uid  = "TEMPLATE_UID"

  bounds {
    min = [-0.1, -0.1, 0]
    max = [0.1, 0.1, 0.2]
  }

  visual {
    materials = ["Gazebo/Red", "Gazebo/Green", "Gazebo/Blue"]
  }
}
`

// CylinderTemplate is a custom template whose bounds are centered on its
// origin, so placement must lift it onto the ground.
const CylinderTemplate = `
model "cylinder" {
  kind = "custom"
  uid  = "TEMPLATE_UID"

  bounds {
    min = [-0.05, -0.05, -0.15]
    max = [0.05, 0.05, 0.15]
  }

  visual {
    materials = ["Gazebo/Wood"]
  }
}
`

// LightTemplate is a point light.
const LightTemplate = `
model "sun" {
  kind = "light"
  uid  = "TEMPLATE_UID"

  bounds {
    min = [0, 0, 0]
    max = [0, 0, 0]
  }
}
`

// Templates returns the standard template fixtures keyed by relative path.
func Templates() map[string]string {
	return map[string]string{
		"models/box.hcl":      BoxTemplate,
		"models/cylinder.hcl": CylinderTemplate,
		"models/sun.hcl":      LightTemplate,
	}
}

// SceneOptions parameterizes SceneHCL.
type SceneOptions struct {
	Iterations int
	Rows       int
	Columns    int
	MinObjects int
	MaxObjects int
	Timeout    string
	OutputDir  string
}

// SceneHCL renders a scene configuration for the memory transport.
func SceneHCL(o SceneOptions) string {
	if o.Timeout == "" {
		o.Timeout = "5s"
	}
	if o.OutputDir == "" {
		o.OutputDir = "dataset"
	}
	return fmt.Sprintf(`
iterations   = %d
seed         = 42
output_dir   = %q
template_dir = "models"

scene {
  min_objects = %d
  max_objects = %d
  physics     = false
}

grid {
  rows      = %d
  columns   = %d
  cell_size = 0.4
  jitter    = 0.05
}

camera {
  radius_min    = 2.5
  radius_max    = 3.5
  elevation_min = 30
  elevation_max = 75
}

light {
  radius_min    = 4
  radius_max    = 6
  elevation_min = 40
  elevation_max = 85
}

bus {
  transport = "memory"
  timeout   = %q
}

index {
  enabled = true
  path    = "annotations.db"
}

simulator {
  width  = 320
  height = 240
  hfov   = 60
}
`, o.Iterations, o.OutputDir, o.MinObjects, o.MaxObjects, o.Rows, o.Columns, o.Timeout)
}
