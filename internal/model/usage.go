package model

// Action names a counted user operation.
type Action string

const (
	ActionRun      Action = "run"
	ActionSimulate Action = "simulate"
	ActionGenerate Action = "generate"
	ActionRefactor Action = "refactor"
	ActionAssist   Action = "assist"
	ActionWeb      Action = "web"
	ActionShare    Action = "share"
)

// Usage maps each action to the number of times a user performed it.
type Usage map[Action]int64
