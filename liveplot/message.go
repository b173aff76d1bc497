package liveplot

// This file contains the wire contract between the controller and the
// renderer worker: tagged JSON records on the worker's stdin, and a
// single JSON reply per image request on its stdout. The JSON encoder's
// trailing newline is the only framing; []byte fields ride as base64.

type action string

const (
	actionStart     action = "start"
	actionStop      action = "stop"
	actionSendImage action = "send_image"
	actionAddPoint  action = "add_point"
)

type message struct {
	Action action `json:"action"`
	// Plots accompanies start.
	Plots []Spec `json:"plots,omitempty"`
	// Data accompanies add_point.
	Data Point `json:"data,omitempty"`
}

type imageReply struct {
	Image []byte `json:"image"`
	Err   string `json:"err,omitempty"`
}
