package streampay

import "github.com/xraph/streampay/types"

// Re-export common types for convenience so users don't have to import
// the types package.

// Principal is re-exported from the types package.
type Principal = types.Principal

// BlockSource is re-exported from the types package.
type BlockSource = types.BlockSource

// BlockSourceFunc is re-exported from the types package.
type BlockSourceFunc = types.BlockSourceFunc

// Entity is re-exported from the types package.
type Entity = types.Entity

// NewEntity is re-exported from the types package.
var NewEntity = types.NewEntity
