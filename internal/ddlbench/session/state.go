package session

// State is the stage a session has reached. The states are passed through in order; a run that
// is skipped or fails to prepare never gets past Connected.
type State int32

const (
	Idle State = iota
	Connected
	Prepared
	WorkersSpawned
	WarmingUp
	OperationRunning
	WindingDown
	TornDown
)

var stateNames = [...]string{
	Idle:             "idle",
	Connected:        "connected",
	Prepared:         "prepared",
	WorkersSpawned:   "workers-spawned",
	WarmingUp:        "warming-up",
	OperationRunning: "operation-running",
	WindingDown:      "winding-down",
	TornDown:         "torn-down",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
