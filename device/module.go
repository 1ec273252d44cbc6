package device

import (
	"github.com/lixenwraith/airbladder/host"
)

// Module identity shared by equipment and the gauge tracker
const (
	ModuleName = "air_bladder"
	ModuleIcon = "airbladder"
)

// Module is the equippable bladder; at most one per vehicle
var Module = host.Module{Name: ModuleName, Icon: ModuleIcon, Unique: true}
