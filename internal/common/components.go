package common

const (
	ComponentIngestor     = "ingestor"
	ComponentRPCClient    = "rpc-client"
	ComponentCheckpoint   = "checkpoint"
	ComponentReorgHandler = "reorg-handler"
	ComponentRouter       = "router"
	ComponentStore        = "store"
	ComponentStreamRelay  = "stream-relay"
	ComponentCache        = "cache"
	ComponentMaintenance  = "maintenance"
	ComponentProjection   = "projection"
)

var AllComponents = map[string]struct{}{
	ComponentIngestor:     {},
	ComponentRPCClient:    {},
	ComponentCheckpoint:   {},
	ComponentReorgHandler: {},
	ComponentRouter:       {},
	ComponentStore:        {},
	ComponentStreamRelay:  {},
	ComponentCache:        {},
	ComponentMaintenance:  {},
	ComponentProjection:   {},
}
