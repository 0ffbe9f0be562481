package orchestrator

import "fmt"

// Stage is a step of the per-iteration state machine. Stages are visited
// strictly in declaration order.
type Stage int

const (
	StageIdle Stage = iota
	StageBuildLayout
	StageSpawnSent
	StageSpawnAcked
	StageCameraMoveSent
	StageCameraMoveAcked
	StageVisualUpdateSent
	StageVisualUpdateAcked
	StageCaptureSent
	StageCaptureAcked
	StageProjectionSent
	StageProjectionAcked
	StageAnnotate
	StageDone
)

var stageNames = []string{
	"IDLE",
	"BUILD_LAYOUT",
	"SPAWN_SENT",
	"SPAWN_ACKED",
	"CAMERA_MOVE_SENT",
	"CAMERA_MOVE_ACKED",
	"VISUAL_UPDATE_SENT",
	"VISUAL_UPDATE_ACKED",
	"CAPTURE_SENT",
	"CAPTURE_ACKED",
	"PROJECTION_SENT",
	"PROJECTION_ACKED",
	"ANNOTATE",
	"DONE",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
