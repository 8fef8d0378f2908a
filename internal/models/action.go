// internal/models/action.go
package models

// GameAction is a judge command received from the console.
type GameAction struct {
	ActionType string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// ActionResult is returned to the console after a GameAction was handled.
type ActionResult struct {
	OK      bool                   `json:"ok"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
