package msgs

import (
	"fmt"
	"strings"
)

func enumName[E ~int](v E, names []string) string {
	if v < 0 || int(v) >= len(names) {
		return fmt.Sprintf("%d", int(v))
	}
	return names[v]
}

func enumMarshal[E ~int](v E, names []string, what string) ([]byte, error) {
	if v < 0 || int(v) >= len(names) {
		return nil, fmt.Errorf("invalid %s %d", what, int(v))
	}
	return []byte(names[v]), nil
}

func enumParse[E ~int](text string, names []string, what string) (E, error) {
	for i, name := range names {
		if text == name {
			return E(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (expected one of %s)", what, text, strings.Join(names, ", "))
}

// WorldOp selects the operation of a world request.
type WorldOp int

const (
	WorldSpawn WorldOp = iota
	WorldMove
	WorldPhysics
	WorldRemove
)

var worldOpNames = []string{"SPAWN", "MOVE", "PHYSICS", "REMOVE"}

func (o WorldOp) String() string               { return enumName(o, worldOpNames) }
func (o WorldOp) MarshalText() ([]byte, error) { return enumMarshal(o, worldOpNames, "world op") }
func (o *WorldOp) UnmarshalText(b []byte) (err error) {
	*o, err = enumParse[WorldOp](string(b), worldOpNames, "world op")
	return err
}

// WorldStatus is the discriminant of a world response.
type WorldStatus int

const (
	WorldSuccess WorldStatus = iota
	WorldFailure
)

var worldStatusNames = []string{"SUCCESS", "FAILURE"}

func (s WorldStatus) String() string { return enumName(s, worldStatusNames) }
func (s WorldStatus) MarshalText() ([]byte, error) {
	return enumMarshal(s, worldStatusNames, "world status")
}
func (s *WorldStatus) UnmarshalText(b []byte) (err error) {
	*s, err = enumParse[WorldStatus](string(b), worldStatusNames, "world status")
	return err
}

// VisualOp selects the operation of a visual request.
type VisualOp int

const (
	VisualUpdate VisualOp = iota
)

var visualOpNames = []string{"UPDATE"}

func (o VisualOp) String() string               { return enumName(o, visualOpNames) }
func (o VisualOp) MarshalText() ([]byte, error) { return enumMarshal(o, visualOpNames, "visual op") }
func (o *VisualOp) UnmarshalText(b []byte) (err error) {
	*o, err = enumParse[VisualOp](string(b), visualOpNames, "visual op")
	return err
}

// VisualStatus is the discriminant of a visual response.
type VisualStatus int

const (
	VisualUpdated VisualStatus = iota
)

var visualStatusNames = []string{"UPDATED"}

func (s VisualStatus) String() string { return enumName(s, visualStatusNames) }
func (s VisualStatus) MarshalText() ([]byte, error) {
	return enumMarshal(s, visualStatusNames, "visual status")
}
func (s *VisualStatus) UnmarshalText(b []byte) (err error) {
	*s, err = enumParse[VisualStatus](string(b), visualStatusNames, "visual status")
	return err
}

// CameraOp selects the operation of a camera request. Camera responses echo
// the op they answer.
type CameraOp int

const (
	CameraMove CameraOp = iota
	CameraCapture
	CameraProjection
)

var cameraOpNames = []string{"MOVE", "CAPTURE", "PROJECTION"}

func (o CameraOp) String() string               { return enumName(o, cameraOpNames) }
func (o CameraOp) MarshalText() ([]byte, error) { return enumMarshal(o, cameraOpNames, "camera op") }
func (o *CameraOp) UnmarshalText(b []byte) (err error) {
	*o, err = enumParse[CameraOp](string(b), cameraOpNames, "camera op")
	return err
}
