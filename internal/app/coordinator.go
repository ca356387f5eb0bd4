package app

import "github.com/tavernkeep/tavern/internal/core"

// Coordinator wires the session services together for the adapters.
type Coordinator struct {
	Store     Store
	Hub       *core.Hub
	Registry  *Registry
	Directory *Directory
	Combat    *Combat
	Logs      *CombatLog
}
