package builtin

import (
	"context"

	"callassist/pkg/tool"
)

// robotCallArgs describes the detect_robot_call arguments; the schema is
// generated from the struct tags.
type robotCallArgs struct {
	Transcript      string   `json:"transcript" description:"The transcribed speech segment from the other party"`
	IsRobotCall     bool     `json:"is_robot_call" description:"True if the transcript indicates an automated phone system (IVR/robot), False otherwise"`
	Confidence      float64  `json:"confidence,omitempty" description:"Confidence score between 0 and 1 indicating how certain the detection is"`
	DetectedPhrases []string `json:"detected_phrases,omitempty" description:"List of phrases that triggered the robot detection"`
}

const defaultConfidence = 0.5

// DetectRobotCall normalizes the model's own robot-call claim into a fixed
// result shape. It performs no detection itself: the model decides whether
// the transcript sounds like an IVR system and this tool just echoes the
// verdict back.
type DetectRobotCall struct {
	tool.BaseTool
}

func NewDetectRobotCall() *DetectRobotCall {
	t := &DetectRobotCall{
		BaseTool: tool.NewBaseTool(
			"detect_robot_call",
			"Check whether a transcribed speech segment likely comes from an automated phone system (IVR or robot), e.g. instructions to press a number or select an option.",
		),
	}
	t.SchemaVal = tool.GenerateSchema(robotCallArgs{})
	return t
}

func (t *DetectRobotCall) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	transcript, _ := args["transcript"].(string)
	isRobot, _ := args["is_robot_call"].(bool)

	confidence := defaultConfidence
	if c, ok := args["confidence"].(float64); ok {
		confidence = c
	}

	return map[string]any{
		"is_robot_call": isRobot,
		"transcript":    transcript,
		"confidence":    confidence,
	}, nil
}

var _ tool.Tool = (*DetectRobotCall)(nil)
