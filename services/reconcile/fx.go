package reconcile

import (
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.module",
	fx.Provide(
		NewService,
	),
)

// Worker runs the scheduler and task handlers on the worker binary.
var Worker = fx.Module("reconcile.worker",
	Module,
	fx.Provide(NewScheduler),
	fx.Invoke(
		RegisterTaskHandlers,
		StartScheduler,
	),
)
