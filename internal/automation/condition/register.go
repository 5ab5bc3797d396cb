package condition

import "github.com/nerrad567/gray-logic-automator/internal/automation"

// Register installs every built-in condition kind into types.
func Register(types *automation.TypeRegistry) {
	types.RegisterCondition("keyword", Keyword{})
	types.RegisterCondition("expression", NewExpression())
	types.RegisterCondition("time_window", TimeWindow{})
}
