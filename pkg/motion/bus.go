package motion

import "context"

// Topics used on the motion bus.
const (
	TopicCmdVel        = "ainex/cmd_vel"
	TopicArmMovement   = "ainex/arm_movement"
	TopicExecuteAction = "ainex/execute_action"
	TopicStopAll       = "ainex/stop_all"
	TopicRobotState    = "ainex/robot_state"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber delivers messages from a topic to fn. fn runs on the bus's
// own goroutine and must not block.
type Subscriber interface {
	Subscribe(topic string, fn func(payload []byte)) error
}

// Bus is the connection to the robot's motion middleware.
type Bus interface {
	Publisher
	Subscriber
	Connected() bool
	Close() error
}

// Vector3 is a 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is a velocity command for TopicCmdVel.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// ArmCommand is published on TopicArmMovement.
type ArmCommand struct {
	Command string `json:"command"`
}

// ActionCommand is published on TopicExecuteAction.
type ActionCommand struct {
	Action string `json:"action"`
}

// StopCommand is published on TopicStopAll.
type StopCommand struct {
	Stop bool `json:"stop"`
}
